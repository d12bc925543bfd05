package models

import "strconv"

// Folder — узел дерева папок. Полю discord_category_id ноль означает, что
// удалённая категория ещё не создана: она выделяется лениво при первом файле.
// parent_id — добавленное поле, старые плоские документы его не содержат
// и читаются как папки в корне.
type Folder struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	DiscordCategoryID int64  `json:"discord_category_id"`
	CreatedAt         string `json:"created_at"`
	ParentID          FlexID `json:"parent_id,omitempty"`
}

// Key возвращает строковую форму идентификатора, в которой папка
// упоминается из файловых записей.
func (f Folder) Key() FlexID {
	return FlexID(strconv.FormatInt(f.ID, 10))
}
