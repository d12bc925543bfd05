package models

import (
	"encoding/json"
	"strconv"
)

// FlexID — идентификатор папки из легаси-документов. Старые записи хранят его
// то строкой, то числом, то null, поэтому обычный string не годится.
// Пустое значение соответствует корню и сериализуется как null.
type FlexID string

// IsRoot сообщает, указывает ли идентификатор на корень дерева.
func (f FlexID) IsRoot() bool { return f == "" }

func (f FlexID) String() string { return string(f) }

func (f FlexID) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(f))
}

func (f *FlexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(strconv.FormatInt(n, 10))
	return nil
}
