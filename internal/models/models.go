package models

import "time"

// User is keyed by the identity provider's uid. Email is a mutable
// attribute, never a key.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Community is a group that posts belong to. MemberCount is maintained by
// the membership manager; IsTentative flips to false once and stays false.
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedBy   string    `json:"created_by"`
	MemberCount int64     `json:"member_count"`
	IsTentative bool      `json:"is_tentative"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at,omitzero"`
}

// Membership is one side of the user/community relation. Both sides are
// written and deleted together.
type Membership struct {
	UserID      string    `json:"user_id"`
	CommunityID string    `json:"community_id"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Post lives in the global posts collection. Community and author copies are
// projections of it.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name,omitempty"`
	CommunityID  string    `json:"community_id,omitempty"`
	Content      string    `json:"content"`
	ImageURL     string    `json:"image_url,omitempty"`
	RecipeID     string    `json:"recipe_id,omitempty"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Like records that a user liked a post or recipe.
type Like struct {
	UserID    string    `json:"user_id"`
	Target    string    `json:"target"`
	TargetID  string    `json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Ingredient struct {
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Name     string `json:"name" binding:"required"`
}

type Recipe struct {
	ID               string       `json:"id"`
	OwnerID          string       `json:"owner_id"`
	Title            string       `json:"title"`
	Ingredients      []Ingredient `json:"ingredients"`
	Instructions     string       `json:"instructions"`
	InstructionsHTML string       `json:"instructions_html,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	CookingTime      int64        `json:"cooking_time"`
	Difficulty       string       `json:"difficulty"`
	MealType         string       `json:"meal_type,omitempty"`
	Dietary          []string     `json:"dietary"`
	ImageURL         string       `json:"image_url,omitempty"`
	LikeCount        int64        `json:"like_count"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Rating is keyed by recipe id and user id.
type Rating struct {
	RecipeID  string    `json:"recipe_id"`
	UserID    string    `json:"user_id"`
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RatingSummary struct {
	RecipeID string  `json:"recipe_id"`
	Count    int64   `json:"count"`
	Average  float64 `json:"average"`
}

type Board struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPrivate   bool      `json:"is_private"`
	RecipeCount int64     `json:"recipe_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SavedRecipe is the projection of a recipe inside a board. It copies the
// display fields so listing a board needs no extra reads.
type SavedRecipe struct {
	RecipeID    string    `json:"recipe_id"`
	BoardID     string    `json:"board_id"`
	Title       string    `json:"title"`
	ImageURL    string    `json:"image_url,omitempty"`
	CookingTime int64     `json:"cooking_time"`
	Difficulty  string    `json:"difficulty,omitempty"`
	MealType    string    `json:"meal_type,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}
