// Команда cli — консольный клиент хранилища: загрузка, скачивание и просмотр
// содержимого через REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sir_venger/chat_drive/pkg/driveclient"
)

func main() {
	addr := flag.String("addr", envOr("DRIVE_ADDR", "http://localhost:8000"), "адрес сервиса")
	folder := flag.String("folder", "", "идентификатор папки")
	message := flag.String("message", "", "подпись к частям файла")
	resume := flag.String("resume", "", "идентификатор сессии для возобновления")
	quiet := flag.Bool("q", false, "без индикатора прогресса")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := driveclient.New(*addr)

	switch args[0] {
	case "upload":
		if len(args) != 2 {
			usage()
		}
		id, err := cli.Upload(ctx, args[1], driveclient.UploadOptions{
			FolderID: *folder,
			Message:  *message,
			ResumeID: *resume,
			Progress: !*quiet,
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("file %d uploaded\n", id)

	case "download":
		if len(args) != 3 {
			usage()
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			log.Fatalf("bad file id %q", args[1])
		}
		if err := cli.Download(ctx, id, args[2], !*quiet); err != nil {
			log.Fatal(err)
		}

	case "ls":
		files, err := cli.Files(ctx, *folder)
		if err != nil {
			log.Fatal(err)
		}
		for _, f := range files {
			fmt.Printf("%d\t%8.2f MB\t%s\t%s\n", f.ID, f.SizeMB, f.SentAt, f.Filename)
		}

	case "folders":
		folders, err := cli.Folders(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, f := range folders {
			fmt.Printf("%d\t%s\n", f.ID, f.Name)
		}

	case "stats":
		st, err := cli.Stats(ctx)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("files: %d, folders: %d, total: %.2f MB\n", st.TotalFiles, st.TotalFolders, st.TotalMB)

	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  cli [flags] upload <path>
  cli [flags] download <file-id> <dest>
  cli [flags] ls
  cli [flags] folders
  cli [flags] stats`)
	os.Exit(2)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
