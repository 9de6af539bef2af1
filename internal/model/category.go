package model

type Category struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Color string `json:"color,omitempty" db:"color"`
	Ctime int64  `json:"ctime" db:"ctime"`
	Mtime int64  `json:"mtime" db:"mtime"`
}
