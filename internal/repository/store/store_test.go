package store

import (
	"context"
	"testing"
	"time"

	"github.com/lalith-99/potluck/internal/apperr"
	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/docstore/memory"
	"github.com/lalith-99/potluck/internal/models"
	"github.com/lalith-99/potluck/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ticker returns a clock that advances one second per call.
func ticker(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func put(t *testing.T, db docstore.Store, ref docstore.Ref, f docstore.Fields) {
	t.Helper()
	require.NoError(t, db.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(ref, f)
	}))
}

func exists(t *testing.T, db docstore.Store, ref docstore.Ref) bool {
	t.Helper()
	_, err := db.Get(context.Background(), ref)
	if err == nil {
		return true
	}
	require.ErrorIs(t, err, docstore.ErrNotFound)
	return false
}

func sampleRecipe(title string) repository.RecipeInput {
	return repository.RecipeInput{
		Title:        title,
		Ingredients:  []models.Ingredient{{Quantity: "200", Unit: "g", Name: "spaghetti"}},
		Instructions: "Boil **water**.",
		CookingTime:  20,
		Difficulty:   "Easy",
		MealType:     "Dinner",
		Dietary:      []string{"vegetarian"},
	}
}

func TestCommunityCreateStartsTentative(t *testing.T) {
	ctx := context.Background()
	s := NewCommunityStore(memory.New())

	c, err := s.Create(ctx, repository.NewCommunity{Name: " Bakers ", Description: "bread", Location: "Oslo", CreatedBy: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "Bakers", c.Name)
	assert.Equal(t, int64(0), c.MemberCount)
	assert.True(t, c.IsTentative)

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.True(t, got.IsTentative)

	_, err = s.Create(ctx, repository.NewCommunity{Name: "x", Description: "y"})
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestCommunityListAndSearch(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	s := NewCommunityStore(db)
	s.SetClock(ticker(epoch))

	bakers, err := s.Create(ctx, repository.NewCommunity{Name: "Bakers", Description: "d", Location: "l"})
	require.NoError(t, err)
	_, err = s.Create(ctx, repository.NewCommunity{Name: "Barbecue", Description: "d", Location: "l"})
	require.NoError(t, err)
	_, err = s.Create(ctx, repository.NewCommunity{Name: "Vegans", Description: "d", Location: "l"})
	require.NoError(t, err)

	put(t, db, CommunityRef(bakers.ID), CommunityFields(&models.Community{
		Name: "Bakers", Description: "d", Location: "l", MemberCount: 2, IsTentative: false, CreatedAt: bakers.CreatedAt,
	}))

	all, err := s.List(ctx, false, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Vegans", all[0].Name)

	published, err := s.List(ctx, true, 0)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, bakers.ID, published[0].ID)

	found, err := s.Search(ctx, "BA", 0)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Bakers", found[0].Name)
	assert.Equal(t, "Barbecue", found[1].Name)
}

func TestCommunityMembersAndUserCommunities(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	s := NewCommunityStore(db)

	c, err := s.Create(ctx, repository.NewCommunity{Name: "Bakers", Description: "d", Location: "l"})
	require.NoError(t, err)
	m := &models.Membership{UserID: "u1", CommunityID: c.ID, JoinedAt: epoch}
	put(t, db, MemberRef(c.ID, "u1"), MembershipFields(m))
	put(t, db, UserCommunityRef("u1", c.ID), MembershipFields(m))
	put(t, db, UserCommunityRef("u1", "deleted"), MembershipFields(&models.Membership{UserID: "u1", CommunityID: "deleted", JoinedAt: epoch}))

	members, err := s.ListMembers(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "u1", members[0].UserID)

	mine, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, c.ID, mine[0].ID)

	_, err = s.ListMembers(ctx, "missing")
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestPostCreateWritesAllCopies(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	communities := NewCommunityStore(db)
	posts := NewPostStore(db)

	c, err := communities.Create(ctx, repository.NewCommunity{Name: "Bakers", Description: "d", Location: "l"})
	require.NoError(t, err)

	p, err := posts.Create(ctx, repository.NewPost{AuthorID: "u1", CommunityID: c.ID, Content: "<b>fresh</b> bread"})
	require.NoError(t, err)
	assert.Equal(t, "fresh bread", p.Content)

	assert.True(t, exists(t, db, PostRef(p.ID)))
	assert.True(t, exists(t, db, CommunityPostRef(c.ID, p.ID)))
	assert.True(t, exists(t, db, UserPostRef("u1", p.ID)))

	feed, err := posts.ListByCommunity(ctx, c.ID, repository.SortRecent, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	mine, err := posts.ListByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestPostCreateFailsWithoutPartialCopies(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	posts := NewPostStore(db)

	_, err := posts.Create(ctx, repository.NewPost{AuthorID: "u1", CommunityID: "nope", Content: "hi"})
	assert.ErrorIs(t, err, apperr.NotFound)

	all, err := posts.ListAll(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
	mine, err := posts.ListByUser(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, mine)

	db.FailNextCommits(10)
	_, err = posts.Create(ctx, repository.NewPost{AuthorID: "u1", Content: "hi"})
	assert.ErrorIs(t, err, apperr.Unavailable)
	all, err = posts.ListAll(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = posts.Create(ctx, repository.NewPost{AuthorID: "u1", Content: "<p></p>"})
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestPostDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	communities := NewCommunityStore(db)
	posts := NewPostStore(db)

	c, err := communities.Create(ctx, repository.NewCommunity{Name: "Bakers", Description: "d", Location: "l"})
	require.NoError(t, err)
	p, err := posts.Create(ctx, repository.NewPost{AuthorID: "u1", CommunityID: c.ID, Content: "bread"})
	require.NoError(t, err)

	put(t, db, CommentRef(p.ID, "c1"), CommentFields(&models.Comment{AuthorID: "u2", Text: "nice", CreatedAt: epoch}))
	put(t, db, LikeRef(TargetPost, p.ID, "u2"), LikeFields(&models.Like{UserID: "u2", Target: TargetPost, TargetID: p.ID}))
	put(t, db, UserLikeRef("u2", TargetPost, p.ID), LikeFields(&models.Like{UserID: "u2", Target: TargetPost, TargetID: p.ID}))

	got, err := posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CommentCount)

	err = posts.Delete(ctx, "u2", p.ID)
	assert.ErrorIs(t, err, apperr.PermissionDenied)
	assert.True(t, exists(t, db, PostRef(p.ID)))

	require.NoError(t, posts.Delete(ctx, "u1", p.ID))
	for _, ref := range []docstore.Ref{
		PostRef(p.ID),
		CommunityPostRef(c.ID, p.ID),
		UserPostRef("u1", p.ID),
		CommentRef(p.ID, "c1"),
		LikeRef(TargetPost, p.ID, "u2"),
		UserLikeRef("u2", TargetPost, p.ID),
	} {
		assert.False(t, exists(t, db, ref), ref.String())
	}

	err = posts.Delete(ctx, "u1", p.ID)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestPostPopularSortUsesProjectionCounts(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	communities := NewCommunityStore(db)
	posts := NewPostStore(db)
	posts.SetClock(ticker(epoch))

	c, err := communities.Create(ctx, repository.NewCommunity{Name: "Bakers", Description: "d", Location: "l"})
	require.NoError(t, err)
	older, err := posts.Create(ctx, repository.NewPost{AuthorID: "u1", CommunityID: c.ID, Content: "older"})
	require.NoError(t, err)
	newer, err := posts.Create(ctx, repository.NewPost{AuthorID: "u1", CommunityID: c.ID, Content: "newer"})
	require.NoError(t, err)

	require.NoError(t, db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Update(CommunityPostRef(c.ID, older.ID), docstore.Fields{FieldLikeCount: docstore.Increment(3)})
	}))

	recent, err := posts.ListByCommunity(ctx, c.ID, repository.SortRecent, 0)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, recent[0].ID)

	popular, err := posts.ListByCommunity(ctx, c.ID, repository.SortPopular, 0)
	require.NoError(t, err)
	assert.Equal(t, older.ID, popular[0].ID)

	_, err = posts.ListByCommunity(ctx, c.ID, "random", 0)
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestRecipeLifecycle(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	recipes := NewRecipeStore(db)
	ratings := NewRatingStore(db)

	r, err := recipes.Create(ctx, "u1", sampleRecipe("Carbonara"))
	require.NoError(t, err)

	got, err := recipes.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carbonara", got.Title)
	assert.Equal(t, []models.Ingredient{{Quantity: "200", Unit: "g", Name: "spaghetti"}}, got.Ingredients)
	assert.Equal(t, []string{"vegetarian"}, got.Dietary)
	assert.Contains(t, got.InstructionsHTML, "<strong>water</strong>")

	in := sampleRecipe("Carbonara v2")
	_, err = recipes.Update(ctx, "u2", r.ID, in)
	assert.ErrorIs(t, err, apperr.PermissionDenied)
	updated, err := recipes.Update(ctx, "u1", r.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Carbonara v2", updated.Title)

	bad := sampleRecipe("x")
	bad.Difficulty = "Impossible"
	_, err = recipes.Create(ctx, "u1", bad)
	assert.ErrorIs(t, err, apperr.Validation)

	_, err = ratings.Rate(ctx, "u2", r.ID, 4)
	require.NoError(t, err)
	put(t, db, LikeRef(TargetRecipe, r.ID, "u2"), LikeFields(&models.Like{UserID: "u2", Target: TargetRecipe, TargetID: r.ID}))

	assert.ErrorIs(t, recipes.Delete(ctx, "u2", r.ID), apperr.PermissionDenied)
	require.NoError(t, recipes.Delete(ctx, "u1", r.ID))
	assert.False(t, exists(t, db, RatingRef(r.ID, "u2")))
	assert.False(t, exists(t, db, LikeRef(TargetRecipe, r.ID, "u2")))

	_, err = recipes.Get(ctx, r.ID)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestRecipeTrending(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	recipes := NewRecipeStore(db)
	recipes.SetClock(ticker(epoch))

	old, err := recipes.Create(ctx, "u1", sampleRecipe("old"))
	require.NoError(t, err)
	quiet, err := recipes.Create(ctx, "u1", sampleRecipe("quiet"))
	require.NoError(t, err)
	loud, err := recipes.Create(ctx, "u1", sampleRecipe("loud"))
	require.NoError(t, err)

	require.NoError(t, db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Update(RecipeRef(old.ID), docstore.Fields{FieldLikeCount: docstore.Increment(10)}); err != nil {
			return err
		}
		return tx.Update(RecipeRef(loud.ID), docstore.Fields{FieldLikeCount: docstore.Increment(5)})
	}))

	got, err := recipes.Trending(ctx, quiet.CreatedAt, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, loud.ID, got[0].ID)
	assert.Equal(t, quiet.ID, got[1].ID)
}

func TestRatingSummary(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	recipes := NewRecipeStore(db)
	ratings := NewRatingStore(db)

	r, err := recipes.Create(ctx, "u1", sampleRecipe("Soup"))
	require.NoError(t, err)
	twin, err := recipes.Create(ctx, "u1", sampleRecipe("Soup"))
	require.NoError(t, err)

	_, err = ratings.Rate(ctx, "u2", r.ID, 5)
	require.NoError(t, err)
	_, err = ratings.Rate(ctx, "u3", r.ID, 2)
	require.NoError(t, err)
	_, err = ratings.Rate(ctx, "u3", r.ID, 4)
	require.NoError(t, err)
	_, err = ratings.Rate(ctx, "u2", r.ID, 9)
	assert.ErrorIs(t, err, apperr.Validation)
	_, err = ratings.Rate(ctx, "u2", "missing", 3)
	assert.ErrorIs(t, err, apperr.NotFound)

	sum, err := ratings.Summary(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.Count)
	assert.InDelta(t, 4.5, sum.Average, 1e-9)

	// Same title, different recipe: ratings do not collide.
	other, err := ratings.Summary(ctx, twin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), other.Count)
}

func TestSaveRecipeTwiceIsAlreadySaved(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	recipes := NewRecipeStore(db)
	boards := NewBoardStore(db)

	r, err := recipes.Create(ctx, "u2", sampleRecipe("Pie"))
	require.NoError(t, err)
	b, err := boards.Create(ctx, "u1", "Desserts", "", false)
	require.NoError(t, err)

	saved, err := boards.SaveRecipe(ctx, "u1", b.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pie", saved.Title)

	_, err = boards.SaveRecipe(ctx, "u1", b.ID, r.ID)
	assert.ErrorIs(t, err, apperr.AlreadySaved)
	assert.ErrorIs(t, err, apperr.Conflict)

	got, err := boards.Get(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.RecipeCount)

	_, err = boards.SaveRecipe(ctx, "u2", b.ID, r.ID)
	assert.ErrorIs(t, err, apperr.PermissionDenied)
	_, err = boards.SaveRecipe(ctx, "u1", b.ID, "missing")
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestRemoveRecipeFloorsCount(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	recipes := NewRecipeStore(db)
	boards := NewBoardStore(db)

	r, err := recipes.Create(ctx, "u1", sampleRecipe("Pie"))
	require.NoError(t, err)
	b, err := boards.Create(ctx, "u1", "Desserts", "", false)
	require.NoError(t, err)
	_, err = boards.SaveRecipe(ctx, "u1", b.ID, r.ID)
	require.NoError(t, err)

	// Corrupt the counter to check the floor.
	require.NoError(t, db.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Update(BoardRef(b.ID), docstore.Fields{FieldRecipeCount: int64(0)})
	}))

	require.NoError(t, boards.RemoveRecipe(ctx, "u1", b.ID, r.ID))
	got, err := boards.Get(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.RecipeCount)

	err = boards.RemoveRecipe(ctx, "u1", b.ID, r.ID)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestDeleteBoardCascades(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	recipes := NewRecipeStore(db)
	boards := NewBoardStore(db)

	b, err := boards.Create(ctx, "u1", "Weeknight", "", false)
	require.NoError(t, err)
	for _, title := range []string{"a", "b", "c"} {
		r, err := recipes.Create(ctx, "u1", sampleRecipe(title))
		require.NoError(t, err)
		_, err = boards.SaveRecipe(ctx, "u1", b.ID, r.ID)
		require.NoError(t, err)
	}
	list, err := boards.ListRecipes(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	assert.ErrorIs(t, boards.Delete(ctx, "u2", b.ID), apperr.PermissionDenied)
	require.NoError(t, boards.Delete(ctx, "u1", b.ID))

	_, err = boards.ListRecipes(ctx, "u1", b.ID)
	assert.ErrorIs(t, err, apperr.NotFound)
	left, err := db.Query(ctx, docstore.From(BoardRecipesOf(b.ID)))
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestPrivateBoards(t *testing.T) {
	ctx := context.Background()
	boards := NewBoardStore(memory.New())

	priv, err := boards.Create(ctx, "u1", "Secret", "", true)
	require.NoError(t, err)
	_, err = boards.Create(ctx, "u1", "Public", "", false)
	require.NoError(t, err)

	_, err = boards.Get(ctx, "u2", priv.ID)
	assert.ErrorIs(t, err, apperr.PermissionDenied)
	_, err = boards.ListRecipes(ctx, "u2", priv.ID)
	assert.ErrorIs(t, err, apperr.PermissionDenied)

	own, err := boards.ListByUser(ctx, "u1", "u1")
	require.NoError(t, err)
	assert.Len(t, own, 2)
	theirs, err := boards.ListByUser(ctx, "u1", "u2")
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "Public", theirs[0].Name)

	updated, err := boards.Update(ctx, "u1", priv.ID, "Open now", "", false)
	require.NoError(t, err)
	assert.False(t, updated.IsPrivate)
	_, err = boards.Get(ctx, "u2", priv.ID)
	assert.NoError(t, err)
}

func TestUserEnsureIsKeyedByUID(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore(memory.New())

	u, err := users.Ensure(ctx, repository.Identity{UserID: "uid-1", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.ID)

	_, err = users.Update(ctx, "uid-1", "Ada L.", "https://img/ada.png")
	require.NoError(t, err)

	again, err := users.Ensure(ctx, repository.Identity{UserID: "uid-1", Name: "Ada", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", again.DisplayName)
	assert.Equal(t, "https://img/ada.png", again.ImageURL)

	_, err = users.Update(ctx, "nobody", "x", "")
	assert.ErrorIs(t, err, apperr.NotFound)
}
