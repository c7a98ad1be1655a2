package store

import "github.com/lalith-99/potluck/internal/docstore"

// Collection layout. posts/{id} is the authoritative copy of a post; the
// community and author copies are projections written in the same
// transaction.
const (
	Users       = "users"
	Communities = "communities"
	Posts       = "posts"
	Recipes     = "recipes"
	Boards      = "boards"

	members  = "members"
	comments = "comments"
	likes    = "likes"
	ratings  = "ratings"
)

// Like targets.
const (
	TargetPost   = "post"
	TargetRecipe = "recipe"
)

func UserRef(uid string) docstore.Ref      { return docstore.Doc(Users, uid) }
func CommunityRef(cid string) docstore.Ref { return docstore.Doc(Communities, cid) }
func PostRef(pid string) docstore.Ref      { return docstore.Doc(Posts, pid) }
func RecipeRef(rid string) docstore.Ref    { return docstore.Doc(Recipes, rid) }
func BoardRef(bid string) docstore.Ref     { return docstore.Doc(Boards, bid) }

// MemberRef is the community side of a membership.
func MemberRef(cid, uid string) docstore.Ref {
	return docstore.Doc(Communities, cid, members, uid)
}

// UserCommunityRef is the user side of a membership.
func UserCommunityRef(uid, cid string) docstore.Ref {
	return docstore.Doc(Users, uid, Communities, cid)
}

func MembersOf(cid string) string        { return docstore.Collection(Communities, cid, members) }
func CommunitiesOf(uid string) string    { return docstore.Collection(Users, uid, Communities) }
func CommunityPostsOf(cid string) string { return docstore.Collection(Communities, cid, Posts) }
func UserPostsOf(uid string) string      { return docstore.Collection(Users, uid, Posts) }

func CommunityPostRef(cid, pid string) docstore.Ref {
	return docstore.Doc(Communities, cid, Posts, pid)
}

func UserPostRef(uid, pid string) docstore.Ref {
	return docstore.Doc(Users, uid, Posts, pid)
}

func CommentsOf(pid string) string { return docstore.Collection(Posts, pid, comments) }

func CommentRef(pid, id string) docstore.Ref {
	return docstore.Doc(Posts, pid, comments, id)
}

// TargetRef returns the authoritative document of a likeable item.
func TargetRef(target, id string) docstore.Ref {
	if target == TargetRecipe {
		return RecipeRef(id)
	}
	return PostRef(id)
}

func LikesOf(target, id string) string {
	return TargetRef(target, id).Sub(likes)
}

func LikeRef(target, id, uid string) docstore.Ref {
	return docstore.Ref{Collection: LikesOf(target, id), ID: uid}
}

// UserLikeRef mirrors a like under the user so "what did I like" is a single
// collection read.
func UserLikeRef(uid, target, id string) docstore.Ref {
	return docstore.Doc(Users, uid, likes, target+"_"+id)
}

func RatingsOf(rid string) string { return docstore.Collection(Recipes, rid, ratings) }

func RatingRef(rid, uid string) docstore.Ref {
	return docstore.Doc(Recipes, rid, ratings, uid)
}

func BoardRecipesOf(bid string) string { return docstore.Collection(Boards, bid, Recipes) }

func SavedRecipeRef(bid, rid string) docstore.Ref {
	return docstore.Doc(Boards, bid, Recipes, rid)
}
