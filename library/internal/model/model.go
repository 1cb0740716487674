package model

import (
	"time"
)

type Role string

const (
	RoleMember    Role = "MEMBER"
	RoleLibrarian Role = "LIBRARIAN"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleLibrarian
}

type Member struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	Phone        string    `json:"phone" db:"phone"`
	Address      string    `json:"address" db:"address"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Item struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Author        string    `json:"author" db:"author"`
	Category      string    `json:"category" db:"category"`
	ISBN          *string   `json:"isbn" db:"isbn"`
	Description   string    `json:"description" db:"description"`
	CoverEmoji    string    `json:"cover_emoji" db:"cover_emoji"`
	StockQuantity int       `json:"stock_quantity" db:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

func (i Item) Available() bool {
	return i.StockQuantity > 0
}

type ItemFilter struct {
	Search    string
	Category  string
	Available *bool
	Skip      int
	Limit     int
}

type CreateItemRequest struct {
	Title         string  `json:"title" validate:"required"`
	Author        string  `json:"author" validate:"required"`
	Category      string  `json:"category"`
	ISBN          *string `json:"isbn"`
	Description   string  `json:"description"`
	CoverEmoji    string  `json:"cover_emoji"`
	StockQuantity int     `json:"stock_quantity" validate:"gte=0"`
}

type UpdateItemRequest struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	Category      *string `json:"category"`
	ISBN          *string `json:"isbn"`
	Description   *string `json:"description"`
	CoverEmoji    *string `json:"cover_emoji"`
	StockQuantity *int    `json:"stock_quantity" validate:"omitempty,gte=0"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Password string `json:"password" validate:"required,min=4"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Token   string  `json:"token,omitempty"`
	User    *Member `json:"user,omitempty"`
}

type UpdateMemberRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Password *string `json:"password" validate:"omitempty,min=4"`
}

type Review struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"member_id"`
	BookID    int64     `json:"book_id" db:"item_id"`
	Rating    int       `json:"rating" db:"rating"`
	Content   string    `json:"content" db:"content"`
	UserName  string    `json:"user_name,omitempty" db:"user_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CreateReviewRequest struct {
	UserID  int64  `json:"user_id" validate:"required"`
	BookID  int64  `json:"book_id" validate:"required"`
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Content *string `json:"content"`
}

type ReviewStats struct {
	BookID        int64    `json:"book_id"`
	AverageRating *float64 `json:"average_rating"`
	ReviewCount   int      `json:"review_count"`
}

type PolicyConfig struct {
	Key         string    `json:"key" db:"key"`
	Value       string    `json:"value" db:"value"`
	Description string    `json:"description" db:"description"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type SetConfigRequest struct {
	Value string `json:"value" validate:"required"`
}

type SetRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=MEMBER LIBRARIAN"`
}
