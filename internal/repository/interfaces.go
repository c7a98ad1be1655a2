package repository

import (
	"context"
	"time"

	"github.com/lalith-99/potluck/internal/models"
)

// Every method takes the caller's context first; the HTTP layer attaches the
// request deadline to it. Errors are always apperr kinds.

type NewCommunity struct {
	Name        string
	Description string
	Location    string
	ImageURL    string
	CreatedBy   string
}

// CommunityRepository reads and creates communities. Membership changes go
// through the membership manager, never through this interface.
type CommunityRepository interface {
	// Create stores a tentative community with no members.
	Create(ctx context.Context, in NewCommunity) (*models.Community, error)

	Get(ctx context.Context, id string) (*models.Community, error)

	// List returns communities newest first. publishedOnly hides tentative ones.
	List(ctx context.Context, publishedOnly bool, limit int) ([]models.Community, error)

	// Search matches a case-insensitive name prefix.
	Search(ctx context.Context, prefix string, limit int) ([]models.Community, error)

	ListMembers(ctx context.Context, communityID string) ([]models.Membership, error)

	// ListByUser returns the communities the user has joined.
	ListByUser(ctx context.Context, userID string) ([]models.Community, error)
}

type NewPost struct {
	AuthorID    string
	AuthorName  string
	CommunityID string
	Content     string
	ImageURL    string
	RecipeID    string
}

// PostSort selects the ordering of a community feed.
type PostSort string

const (
	SortRecent  PostSort = "recent"
	SortPopular PostSort = "popular"
)

type PostRepository interface {
	// Create writes the post and its community and author projections
	// atomically.
	Create(ctx context.Context, in NewPost) (*models.Post, error)

	Get(ctx context.Context, id string) (*models.Post, error)

	ListByCommunity(ctx context.Context, communityID string, sort PostSort, limit int) ([]models.Post, error)

	// ListAll is the global feed, newest first.
	ListAll(ctx context.Context, limit int) ([]models.Post, error)

	ListByUser(ctx context.Context, userID string, limit int) ([]models.Post, error)

	// Delete removes every copy of the post with its comments and likes.
	// Only the author may delete.
	Delete(ctx context.Context, userID, postID string) error
}

type RecipeInput struct {
	Title        string
	Ingredients  []models.Ingredient
	Instructions string
	Notes        string
	CookingTime  int64
	Difficulty   string
	MealType     string
	Dietary      []string
	ImageURL     string
}

type RecipeRepository interface {
	Create(ctx context.Context, ownerID string, in RecipeInput) (*models.Recipe, error)

	// Get returns the recipe with its instructions rendered to HTML.
	Get(ctx context.Context, id string) (*models.Recipe, error)

	// Update replaces the editable fields. Owner only.
	Update(ctx context.Context, ownerID, id string, in RecipeInput) (*models.Recipe, error)

	// Delete removes the recipe with its likes and ratings. Owner only.
	Delete(ctx context.Context, ownerID, id string) error

	List(ctx context.Context, limit int) ([]models.Recipe, error)
	ListByUser(ctx context.Context, ownerID string, limit int) ([]models.Recipe, error)

	// Trending returns recipes created after since, most liked first.
	Trending(ctx context.Context, since time.Time, limit int) ([]models.Recipe, error)
}

type RatingRepository interface {
	// Rate upserts the user's rating of a recipe. Value must be 1..5.
	Rate(ctx context.Context, userID, recipeID string, value int64) (*models.Rating, error)

	// Summary computes count and average at read time.
	Summary(ctx context.Context, recipeID string) (*models.RatingSummary, error)
}

type BoardRepository interface {
	Create(ctx context.Context, ownerID, name, description string, isPrivate bool) (*models.Board, error)

	// Get hides private boards from everyone but the owner.
	Get(ctx context.Context, viewerID, id string) (*models.Board, error)

	// ListByUser returns the owner's boards; private ones only when the
	// viewer is the owner.
	ListByUser(ctx context.Context, ownerID, viewerID string) ([]models.Board, error)

	Update(ctx context.Context, ownerID, id, name, description string, isPrivate bool) (*models.Board, error)

	// Delete removes the board and every saved recipe projection.
	Delete(ctx context.Context, ownerID, id string) error

	// SaveRecipe fails with AlreadySaved when the recipe is already on the board.
	SaveRecipe(ctx context.Context, ownerID, boardID, recipeID string) (*models.SavedRecipe, error)

	// RemoveRecipe fails with NotFound when the recipe is not on the board.
	RemoveRecipe(ctx context.Context, ownerID, boardID, recipeID string) error

	ListRecipes(ctx context.Context, viewerID, boardID string) ([]models.SavedRecipe, error)
}

// Identity is what the identity provider tells us about the caller.
type Identity struct {
	UserID   string
	Name     string
	Email    string
	ImageURL string
}

type UserRepository interface {
	// Ensure returns the user, creating it on first sign-in.
	Ensure(ctx context.Context, id Identity) (*models.User, error)

	Get(ctx context.Context, id string) (*models.User, error)

	// Update edits the profile. Empty values leave a field unchanged.
	Update(ctx context.Context, id, displayName, imageURL string) (*models.User, error)
}
