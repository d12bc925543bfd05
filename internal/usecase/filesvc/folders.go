package filesvc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sir_venger/chat_drive/internal/models"
)

// CreateFolder добавляет папку в дерево. Удалённая категория при этом не
// создаётся: она выделяется лениво при первом размещении файла.
func (s *Service) CreateFolder(ctx context.Context, name string, parentID models.FlexID) (models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Folder{}, fmt.Errorf("folder name is empty")
	}

	if !parentID.IsRoot() {
		if _, err := s.folderByKey(ctx, parentID); err != nil {
			return models.Folder{}, err
		}
	}

	folder := models.Folder{
		ID:        models.NewID(),
		Name:      name,
		CreatedAt: models.NowDisplay(),
		ParentID:  parentID,
	}
	if err := s.Registry.SaveFolder(ctx, folder); err != nil {
		return models.Folder{}, err
	}
	return folder, nil
}

// Folders возвращает всё дерево плоским списком.
func (s *Service) Folders(ctx context.Context) ([]models.Folder, error) {
	return s.Registry.ListFolders(ctx)
}

// RenameFolder меняет отображаемое имя; метаданные, ничего удалённого.
func (s *Service) RenameFolder(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("folder name is empty")
	}

	folder, err := s.folderByID(ctx, id)
	if err != nil {
		return err
	}
	folder.Name = name
	return s.Registry.SaveFolder(ctx, folder)
}

// MoveFolder перевешивает папку под нового родителя. Перемещение под
// собственного потомка (или саму себя) отклоняется с ErrCycle, дерево
// при этом не меняется.
func (s *Service) MoveFolder(ctx context.Context, id int64, newParent models.FlexID) error {
	folder, err := s.folderByID(ctx, id)
	if err != nil {
		return err
	}

	if !newParent.IsRoot() {
		if _, err := s.folderByKey(ctx, newParent); err != nil {
			return err
		}
		if err := s.checkCycle(ctx, folder.Key(), newParent); err != nil {
			return err
		}
	}

	folder.ParentID = newParent
	return s.Registry.SaveFolder(ctx, folder)
}

// checkCycle поднимается от newParent к корню; встретить moved — значит,
// перемещаемая папка оказалась бы собственным предком.
func (s *Service) checkCycle(ctx context.Context, moved, newParent models.FlexID) error {
	if moved == newParent {
		return models.ErrCycle
	}

	folders, err := s.Registry.ListFolders(ctx)
	if err != nil {
		return err
	}
	byKey := make(map[models.FlexID]models.Folder, len(folders))
	for _, f := range folders {
		byKey[f.Key()] = f
	}

	for cursor := newParent; !cursor.IsRoot(); {
		f, ok := byKey[cursor]
		if !ok {
			return nil
		}
		if f.ParentID == moved {
			return models.ErrCycle
		}
		cursor = f.ParentID
	}
	return nil
}

// DeleteFolder удаляет папку. Без force непустая папка отклоняется с
// ErrNotEmpty. C force содержимое каскадно вычищается: части файлов
// best-effort удаляются с платформ, затем записи убираются из реестра.
func (s *Service) DeleteFolder(ctx context.Context, id int64, force bool) error {
	folder, err := s.folderByID(ctx, id)
	if err != nil {
		return err
	}

	folders, err := s.Registry.ListFolders(ctx)
	if err != nil {
		return err
	}
	files, err := s.Registry.ListFiles(ctx)
	if err != nil {
		return err
	}

	if !force && !s.folderEmpty(folder, folders, files) {
		return models.ErrNotEmpty
	}

	return s.deleteFolderTree(ctx, folder, folders, files)
}

func (s *Service) folderEmpty(folder models.Folder, folders []models.Folder, files []models.FileRecord) bool {
	key := folder.Key()
	for _, f := range folders {
		if f.ParentID == key {
			return false
		}
	}
	for _, rec := range files {
		if rec.FolderID == key {
			return false
		}
	}
	return true
}

func (s *Service) deleteFolderTree(ctx context.Context, folder models.Folder, folders []models.Folder, files []models.FileRecord) error {
	key := folder.Key()

	for _, child := range folders {
		if child.ParentID == key {
			if err := s.deleteFolderTree(ctx, child, folders, files); err != nil {
				return err
			}
		}
	}
	for _, rec := range files {
		if rec.FolderID == key {
			if err := s.DeleteFile(ctx, rec.ID, true); err != nil {
				return err
			}
		}
	}

	if folder.DiscordCategoryID != 0 && s.Remote != nil {
		// Remote-категория удаляется как обычный канал; неуспех не блокирует.
		if err := s.Remote.DeleteChannel(ctx, strconv.FormatInt(folder.DiscordCategoryID, 10)); err != nil {
			logRemoteCleanup(folder.Name, err)
		}
	}

	return s.Registry.DeleteFolder(ctx, folder.ID)
}

// EnsureCategory возвращает id удалённой категории папки, создавая её при
// первом обращении. Для корня (пустой id) категории нет.
func (s *Service) EnsureCategory(ctx context.Context, folderID models.FlexID) (int64, string, error) {
	if folderID.IsRoot() {
		return 0, "", nil
	}

	folder, err := s.folderByKey(ctx, folderID)
	if err != nil {
		return 0, "", err
	}
	if folder.DiscordCategoryID != 0 {
		return folder.DiscordCategoryID, folder.Name, nil
	}
	if s.Remote == nil {
		return 0, folder.Name, nil
	}

	catID, err := s.Remote.CreateCategory(ctx, folder.Name)
	if err != nil {
		return 0, "", fmt.Errorf("create category for folder %q: %w", folder.Name, err)
	}
	folder.DiscordCategoryID = catID
	if err := s.Registry.SaveFolder(ctx, folder); err != nil {
		return 0, "", err
	}
	return catID, folder.Name, nil
}

func (s *Service) folderByID(ctx context.Context, id int64) (models.Folder, error) {
	folders, err := s.Registry.ListFolders(ctx)
	if err != nil {
		return models.Folder{}, err
	}
	for _, f := range folders {
		if f.ID == id {
			return f, nil
		}
	}
	return models.Folder{}, models.ErrFolderNotFound
}

func (s *Service) folderByKey(ctx context.Context, key models.FlexID) (models.Folder, error) {
	id, err := strconv.ParseInt(key.String(), 10, 64)
	if err != nil {
		return models.Folder{}, models.ErrFolderNotFound
	}
	return s.folderByID(ctx, id)
}
