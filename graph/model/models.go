package model

type Author struct {
	ID   int    `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"unique;not null" validate:"required,min=4"`
	Born *int   `json:"born" validate:"omitempty,min=0"`
}

type Book struct {
	ID        int     `json:"id" gorm:"primaryKey"`
	Title     string  `json:"title" gorm:"unique;not null" validate:"required,min=5"`
	Published int     `json:"published" validate:"min=0"`
	Genres    Genres  `json:"genres" gorm:"type:jsonb"`
	AuthorID  int     `json:"-" gorm:"index"`
	Author    *Author `json:"author" validate:"-"`
}

type User struct {
	ID            int    `json:"id" gorm:"primaryKey"`
	Username      string `json:"username" gorm:"unique;not null" validate:"required,min=3"`
	FavoriteGenre string `json:"favoriteGenre"`
	PasswordHash  string `json:"-"`
}

type Token struct {
	Value string `json:"value"`
}

type BookFilter struct {
	Author *string `mapstructure:"author"`
	Genre  *string `mapstructure:"genre"`
}

type NewBook struct {
	Title     string   `mapstructure:"title"`
	Author    string   `mapstructure:"author"`
	Published int      `mapstructure:"published"`
	Genres    []string `mapstructure:"genres"`
}

type EditAuthor struct {
	Name      string `mapstructure:"name"`
	SetBornTo int    `mapstructure:"setBornTo"`
}

type NewUser struct {
	Username      string  `mapstructure:"username"`
	FavoriteGenre string  `mapstructure:"favoriteGenre"`
	Password      *string `mapstructure:"password"`
}

type Login struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type EditUser struct {
	Username      string `mapstructure:"username"`
	FavoriteGenre string `mapstructure:"favoriteGenre"`
}
