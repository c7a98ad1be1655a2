package store

import (
	"strings"

	"github.com/lalith-99/potluck/internal/docstore"
	"github.com/lalith-99/potluck/internal/models"
)

// Document field names shared with the services that mutate counters.
const (
	FieldMemberCount = "memberCount"
	FieldIsTentative = "isTentative"
	FieldPublishedAt = "publishedAt"
	FieldLikeCount   = "likeCount"
	FieldRecipeCount = "recipeCount"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldAuthorID    = "authorId"
	FieldCommunityID = "communityId"
	FieldUserID      = "userId"
	FieldOwnerID     = "ownerId"
	FieldNameLower   = "nameLower"
	FieldIsPrivate   = "isPrivate"
)

func UserFields(u *models.User) docstore.Fields {
	return docstore.Fields{
		"displayName":  u.DisplayName,
		"email":        u.Email,
		"imageUrl":     u.ImageURL,
		FieldCreatedAt: u.CreatedAt,
		FieldUpdatedAt: u.UpdatedAt,
	}
}

func DecodeUser(s *docstore.Snapshot) *models.User {
	return &models.User{
		ID:          s.Ref.ID,
		DisplayName: s.String("displayName"),
		Email:       s.String("email"),
		ImageURL:    s.String("imageUrl"),
		CreatedAt:   s.Time(FieldCreatedAt),
		UpdatedAt:   s.Time(FieldUpdatedAt),
	}
}

func CommunityFields(c *models.Community) docstore.Fields {
	f := docstore.Fields{
		"name":           c.Name,
		FieldNameLower:   strings.ToLower(c.Name),
		"description":    c.Description,
		"location":       c.Location,
		"imageUrl":       c.ImageURL,
		"createdBy":      c.CreatedBy,
		FieldMemberCount: c.MemberCount,
		FieldIsTentative: c.IsTentative,
		FieldCreatedAt:   c.CreatedAt,
	}
	if !c.PublishedAt.IsZero() {
		f[FieldPublishedAt] = c.PublishedAt
	}
	return f
}

func DecodeCommunity(s *docstore.Snapshot) *models.Community {
	return &models.Community{
		ID:          s.Ref.ID,
		Name:        s.String("name"),
		Description: s.String("description"),
		Location:    s.String("location"),
		ImageURL:    s.String("imageUrl"),
		CreatedBy:   s.String("createdBy"),
		MemberCount: s.Int(FieldMemberCount),
		IsTentative: s.Bool(FieldIsTentative),
		CreatedAt:   s.Time(FieldCreatedAt),
		PublishedAt: s.Time(FieldPublishedAt),
	}
}

func MembershipFields(m *models.Membership) docstore.Fields {
	return docstore.Fields{
		FieldUserID:      m.UserID,
		FieldCommunityID: m.CommunityID,
		"joinedAt":       m.JoinedAt,
	}
}

func DecodeMembership(s *docstore.Snapshot) models.Membership {
	return models.Membership{
		UserID:      s.String(FieldUserID),
		CommunityID: s.String(FieldCommunityID),
		JoinedAt:    s.Time("joinedAt"),
	}
}

// PostFields is used for the authoritative copy and both projections.
func PostFields(p *models.Post) docstore.Fields {
	return docstore.Fields{
		FieldAuthorID:    p.AuthorID,
		"authorName":     p.AuthorName,
		FieldCommunityID: p.CommunityID,
		"content":        p.Content,
		"imageUrl":       p.ImageURL,
		"recipeId":       p.RecipeID,
		FieldLikeCount:   p.LikeCount,
		FieldCreatedAt:   p.CreatedAt,
	}
}

func DecodePost(s *docstore.Snapshot) *models.Post {
	return &models.Post{
		ID:          s.Ref.ID,
		AuthorID:    s.String(FieldAuthorID),
		AuthorName:  s.String("authorName"),
		CommunityID: s.String(FieldCommunityID),
		Content:     s.String("content"),
		ImageURL:    s.String("imageUrl"),
		RecipeID:    s.String("recipeId"),
		LikeCount:   s.Int(FieldLikeCount),
		CreatedAt:   s.Time(FieldCreatedAt),
	}
}

func CommentFields(c *models.Comment) docstore.Fields {
	return docstore.Fields{
		FieldAuthorID:  c.AuthorID,
		"authorName":   c.AuthorName,
		"text":         c.Text,
		FieldCreatedAt: c.CreatedAt,
	}
}

func DecodeComment(pid string, s *docstore.Snapshot) models.Comment {
	return models.Comment{
		ID:         s.Ref.ID,
		PostID:     pid,
		AuthorID:   s.String(FieldAuthorID),
		AuthorName: s.String("authorName"),
		Text:       s.String("text"),
		CreatedAt:  s.Time(FieldCreatedAt),
	}
}

func LikeFields(l *models.Like) docstore.Fields {
	return docstore.Fields{
		FieldUserID:    l.UserID,
		"target":       l.Target,
		"targetId":     l.TargetID,
		FieldCreatedAt: l.CreatedAt,
	}
}

func DecodeLike(s *docstore.Snapshot) models.Like {
	return models.Like{
		UserID:    s.String(FieldUserID),
		Target:    s.String("target"),
		TargetID:  s.String("targetId"),
		CreatedAt: s.Time(FieldCreatedAt),
	}
}

func RecipeFields(r *models.Recipe) docstore.Fields {
	ingredients := make([]any, 0, len(r.Ingredients))
	for _, in := range r.Ingredients {
		ingredients = append(ingredients, map[string]any{
			"quantity": in.Quantity,
			"unit":     in.Unit,
			"name":     in.Name,
		})
	}
	dietary := make([]any, 0, len(r.Dietary))
	for _, d := range r.Dietary {
		dietary = append(dietary, d)
	}
	return docstore.Fields{
		FieldOwnerID:   r.OwnerID,
		"title":        r.Title,
		"ingredients":  ingredients,
		"instructions": r.Instructions,
		"notes":        r.Notes,
		"cookingTime":  r.CookingTime,
		"difficulty":   r.Difficulty,
		"mealType":     r.MealType,
		"dietary":      dietary,
		"imageUrl":     r.ImageURL,
		FieldLikeCount: r.LikeCount,
		FieldCreatedAt: r.CreatedAt,
		FieldUpdatedAt: r.UpdatedAt,
	}
}

func DecodeRecipe(s *docstore.Snapshot) *models.Recipe {
	raw := s.Maps("ingredients")
	ingredients := make([]models.Ingredient, 0, len(raw))
	for _, m := range raw {
		in := models.Ingredient{}
		in.Quantity, _ = m["quantity"].(string)
		in.Unit, _ = m["unit"].(string)
		in.Name, _ = m["name"].(string)
		ingredients = append(ingredients, in)
	}
	return &models.Recipe{
		ID:           s.Ref.ID,
		OwnerID:      s.String(FieldOwnerID),
		Title:        s.String("title"),
		Ingredients:  ingredients,
		Instructions: s.String("instructions"),
		Notes:        s.String("notes"),
		CookingTime:  s.Int("cookingTime"),
		Difficulty:   s.String("difficulty"),
		MealType:     s.String("mealType"),
		Dietary:      s.Strings("dietary"),
		ImageURL:     s.String("imageUrl"),
		LikeCount:    s.Int(FieldLikeCount),
		CreatedAt:    s.Time(FieldCreatedAt),
		UpdatedAt:    s.Time(FieldUpdatedAt),
	}
}

func RatingFields(r *models.Rating) docstore.Fields {
	return docstore.Fields{
		FieldUserID:    r.UserID,
		"value":        r.Value,
		FieldUpdatedAt: r.UpdatedAt,
	}
}

func DecodeRating(rid string, s *docstore.Snapshot) models.Rating {
	return models.Rating{
		RecipeID:  rid,
		UserID:    s.Ref.ID,
		Value:     s.Int("value"),
		UpdatedAt: s.Time(FieldUpdatedAt),
	}
}

func BoardFields(b *models.Board) docstore.Fields {
	return docstore.Fields{
		FieldOwnerID:     b.OwnerID,
		"name":           b.Name,
		"description":    b.Description,
		FieldIsPrivate:   b.IsPrivate,
		FieldRecipeCount: b.RecipeCount,
		FieldCreatedAt:   b.CreatedAt,
		FieldUpdatedAt:   b.UpdatedAt,
	}
}

func DecodeBoard(s *docstore.Snapshot) *models.Board {
	return &models.Board{
		ID:          s.Ref.ID,
		OwnerID:     s.String(FieldOwnerID),
		Name:        s.String("name"),
		Description: s.String("description"),
		IsPrivate:   s.Bool(FieldIsPrivate),
		RecipeCount: s.Int(FieldRecipeCount),
		CreatedAt:   s.Time(FieldCreatedAt),
		UpdatedAt:   s.Time(FieldUpdatedAt),
	}
}

func SavedRecipeFields(r *models.SavedRecipe) docstore.Fields {
	return docstore.Fields{
		"title":       r.Title,
		"imageUrl":    r.ImageURL,
		"cookingTime": r.CookingTime,
		"difficulty":  r.Difficulty,
		"mealType":    r.MealType,
		"savedAt":     r.SavedAt,
	}
}

func DecodeSavedRecipe(bid string, s *docstore.Snapshot) models.SavedRecipe {
	return models.SavedRecipe{
		RecipeID:    s.Ref.ID,
		BoardID:     bid,
		Title:       s.String("title"),
		ImageURL:    s.String("imageUrl"),
		CookingTime: s.Int("cookingTime"),
		Difficulty:  s.String("difficulty"),
		MealType:    s.String("mealType"),
		SavedAt:     s.Time("savedAt"),
	}
}
