package graph

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "socialblog/backend/pkg/errors"
	"socialblog/backend/pkg/logger"
)

var _ Store = (*MemoryStore)(nil)

var errStoreClosed = stderrors.New("memory store closed")

// adjacency indexes edges by endpoint then relation: endpoint -> rel -> other endpoints
type adjacency map[Ref]map[RelType]map[Ref]struct{}

func (a adjacency) add(from Ref, rel RelType, to Ref) {
	byRel, ok := a[from]
	if !ok {
		byRel = make(map[RelType]map[Ref]struct{})
		a[from] = byRel
	}
	set, ok := byRel[rel]
	if !ok {
		set = make(map[Ref]struct{})
		byRel[rel] = set
	}
	set[to] = struct{}{}
}

func (a adjacency) remove(from Ref, rel RelType, to Ref) {
	if set, ok := a[from][rel]; ok {
		delete(set, to)
	}
}

func (a adjacency) has(from Ref, rel RelType, to Ref) bool {
	_, ok := a[from][rel][to]
	return ok
}

func (a adjacency) list(from Ref, rel RelType) []Ref {
	set := a[from][rel]
	refs := make([]Ref, 0, len(set))
	for ref := range set {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ID != refs[j].ID {
			return refs[i].ID < refs[j].ID
		}
		return refs[i].Name < refs[j].Name
	})
	return refs
}

// MemoryStore is an in-process Store with an explicit adjacency index.
// All state is guarded by one RWMutex, so every write is atomic.
type MemoryStore struct {
	mu        sync.RWMutex
	closed    bool
	users     map[int64]UserNode
	usernames map[string]int64
	posts     map[int64]PostNode
	comments  map[int64]CommentNode
	interests map[string]InterestNode
	out       adjacency
	in        adjacency
	now       func() time.Time
	logger    *zap.Logger
}

// NewMemoryStore creates an empty in-memory graph
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.Named("graph.memory"),
	}
	s.reset()
	return s
}

func (s *MemoryStore) reset() {
	s.users = make(map[int64]UserNode)
	s.usernames = make(map[string]int64)
	s.posts = make(map[int64]PostNode)
	s.comments = make(map[int64]CommentNode)
	s.interests = make(map[string]InterestNode)
	s.out = make(adjacency)
	s.in = make(adjacency)
}

// Close marks the store unavailable; later calls fail with ErrGraphUnavailable
func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Reopen makes a closed store available again, keeping its contents
func (s *MemoryStore) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
}

// EnsureSchema is a no-op; uniqueness is enforced by the maps themselves
func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx)
}

// Clear drops every node and edge
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.reset()
	s.logger.Warn("Graph cleared")
	return nil
}

// check must be called with the lock held
func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed {
		return apperrors.NewGraphUnavailable("memory", errStoreClosed)
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewGraphUnavailable("memory", err)
	}
	return nil
}

func (s *MemoryStore) exists(ref Ref) bool {
	switch ref.Kind {
	case KindUser:
		_, ok := s.users[ref.ID]
		return ok
	case KindPost:
		_, ok := s.posts[ref.ID]
		return ok
	case KindComment:
		_, ok := s.comments[ref.ID]
		return ok
	case KindInterest:
		_, ok := s.interests[ref.Name]
		return ok
	}
	return false
}

func (s *MemoryStore) link(from Ref, rel RelType, to Ref) {
	s.out.add(from, rel, to)
	s.in.add(to, rel, from)
}

func (s *MemoryStore) unlink(from Ref, rel RelType, to Ref) {
	s.out.remove(from, rel, to)
	s.in.remove(to, rel, from)
}

// detach removes every edge incident to ref
func (s *MemoryStore) detach(ref Ref) {
	for rel, targets := range s.out[ref] {
		for to := range targets {
			s.in.remove(to, rel, ref)
		}
	}
	for rel, sources := range s.in[ref] {
		for from := range sources {
			s.out.remove(from, rel, ref)
		}
	}
	delete(s.out, ref)
	delete(s.in, ref)
}

// firstSource returns the id of the lowest-keyed node with an edge rel into ref
func (s *MemoryStore) firstSource(ref Ref, rel RelType) int64 {
	if sources := s.in.list(ref, rel); len(sources) > 0 {
		return sources[0].ID
	}
	return 0
}

func (s *MemoryStore) firstTarget(ref Ref, rel RelType) int64 {
	if targets := s.out.list(ref, rel); len(targets) > 0 {
		return targets[0].ID
	}
	return 0
}

// ============================================================================
// Users
// ============================================================================

// UpsertUser creates or overwrites a user. A username held by another user is a constraint violation.
func (s *MemoryStore) UpsertUser(ctx context.Context, user UserNode) (*UserNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	if owner, taken := s.usernames[user.Username]; taken && owner != user.UserID {
		s.logger.Warn("Username held by another graph user, run backfill with -clear to repair",
			zap.Int64("user_id", user.UserID),
			zap.String("username", user.Username),
			zap.Int64("holder_user_id", owner))
		return nil, apperrors.NewGraphConstraint(string(KindUser), "username="+user.Username, nil)
	}

	if existing, ok := s.users[user.UserID]; ok {
		user.DateJoined = existing.DateJoined
		if existing.Username != user.Username {
			delete(s.usernames, existing.Username)
		}
	} else if user.DateJoined.IsZero() {
		user.DateJoined = s.now()
	}
	user.DateJoined = user.DateJoined.UTC()

	s.users[user.UserID] = user
	s.usernames[user.Username] = user.UserID
	return &user, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, userID int64) (*UserNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	user, ok := s.users[userID]
	if !ok {
		return nil, notFound(UserRef(userID))
	}
	return &user, nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*UserNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	id, ok := s.usernames[username]
	if !ok {
		return nil, apperrors.NewGraphNotFound(string(KindUser), username)
	}
	user := s.users[id]
	return &user, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	user, ok := s.users[userID]
	if !ok {
		return false, nil
	}
	s.detach(UserRef(userID))
	delete(s.usernames, user.Username)
	delete(s.users, userID)
	return true, nil
}

// ============================================================================
// Posts
// ============================================================================

func (s *MemoryStore) CreatePost(ctx context.Context, authorID int64, post PostNode, tags []string) (*PostNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if _, ok := s.users[authorID]; !ok {
		return nil, notFound(UserRef(authorID))
	}

	now := s.now()
	if existing, ok := s.posts[post.PostID]; ok {
		post.CreatedAt = existing.CreatedAt
	} else if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = now
	post.AuthorID = 0
	s.posts[post.PostID] = post

	s.link(UserRef(authorID), RelPosted, PostRef(post.PostID))
	s.replaceTags(post.PostID, normalizeTags(tags), now)

	post.AuthorID = s.firstSource(PostRef(post.PostID), RelPosted)
	return &post, nil
}

func (s *MemoryStore) UpdatePost(ctx context.Context, post PostNode, tags []string) (*PostNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	existing, ok := s.posts[post.PostID]
	if !ok {
		return nil, notFound(PostRef(post.PostID))
	}

	now := s.now()
	existing.Content = post.Content
	existing.UpdatedAt = now
	s.posts[post.PostID] = existing
	s.replaceTags(post.PostID, normalizeTags(tags), now)

	existing.AuthorID = s.firstSource(PostRef(post.PostID), RelPosted)
	return &existing, nil
}

// replaceTags must be called with the write lock held
func (s *MemoryStore) replaceTags(postID int64, tags []string, now time.Time) {
	ref := PostRef(postID)
	for _, interest := range s.out.list(ref, RelTaggedWith) {
		s.unlink(ref, RelTaggedWith, interest)
	}
	for _, name := range tags {
		if _, ok := s.interests[name]; !ok {
			s.interests[name] = InterestNode{Name: name, CreatedAt: now}
		}
		s.link(ref, RelTaggedWith, InterestRef(name))
	}
}

func (s *MemoryStore) GetPost(ctx context.Context, postID int64) (*PostNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	post, ok := s.posts[postID]
	if !ok {
		return nil, notFound(PostRef(postID))
	}
	post.AuthorID = s.firstSource(PostRef(postID), RelPosted)
	return &post, nil
}

func (s *MemoryStore) DeletePost(ctx context.Context, postID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if _, ok := s.posts[postID]; !ok {
		return false, nil
	}
	s.detach(PostRef(postID))
	delete(s.posts, postID)
	return true, nil
}

func (s *MemoryStore) PostTags(ctx context.Context, postID int64) ([]InterestNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.interestNodes(s.out.list(PostRef(postID), RelTaggedWith)), nil
}

// ============================================================================
// Comments
// ============================================================================

func (s *MemoryStore) CreateComment(ctx context.Context, authorID, postID int64, comment CommentNode) (*CommentNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if _, ok := s.users[authorID]; !ok {
		return nil, notFound(UserRef(authorID))
	}
	if _, ok := s.posts[postID]; !ok {
		return nil, notFound(PostRef(postID))
	}

	if existing, ok := s.comments[comment.CommentID]; ok {
		comment.CreatedAt = existing.CreatedAt
	} else if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	comment.CreatedAt = comment.CreatedAt.UTC()
	comment.AuthorID, comment.PostID = 0, 0
	s.comments[comment.CommentID] = comment

	ref := CommentRef(comment.CommentID)
	s.link(UserRef(authorID), RelCommented, ref)
	s.link(ref, RelCommentOn, PostRef(postID))

	comment.AuthorID = authorID
	comment.PostID = postID
	return &comment, nil
}

func (s *MemoryStore) GetComment(ctx context.Context, commentID int64) (*CommentNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	comment, ok := s.comments[commentID]
	if !ok {
		return nil, notFound(CommentRef(commentID))
	}
	return s.decorateComment(comment), nil
}

func (s *MemoryStore) decorateComment(comment CommentNode) *CommentNode {
	ref := CommentRef(comment.CommentID)
	comment.AuthorID = s.firstSource(ref, RelCommented)
	comment.PostID = s.firstTarget(ref, RelCommentOn)
	return &comment
}

func (s *MemoryStore) DeleteComment(ctx context.Context, commentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if _, ok := s.comments[commentID]; !ok {
		return false, nil
	}
	s.detach(CommentRef(commentID))
	delete(s.comments, commentID)
	return true, nil
}

func (s *MemoryStore) PostComments(ctx context.Context, postID int64) ([]CommentNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	refs := s.in.list(PostRef(postID), RelCommentOn)
	comments := make([]CommentNode, 0, len(refs))
	for _, ref := range refs {
		comments = append(comments, *s.decorateComment(s.comments[ref.ID]))
	}
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].CommentID < comments[j].CommentID
	})
	return comments, nil
}

// ============================================================================
// Interests
// ============================================================================

func (s *MemoryStore) UpsertInterest(ctx context.Context, name, description string) (*InterestNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	name = normalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("interest name is empty")
	}

	interest, ok := s.interests[name]
	if !ok {
		interest = InterestNode{Name: name, CreatedAt: s.now()}
	}
	if description != "" {
		interest.Description = description
	}
	s.interests[name] = interest
	return &interest, nil
}

func (s *MemoryStore) GetInterest(ctx context.Context, name string) (*InterestNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	name = normalizeName(name)
	interest, ok := s.interests[name]
	if !ok {
		return nil, notFound(InterestRef(name))
	}
	return &interest, nil
}

// ============================================================================
// Edges
// ============================================================================

func (s *MemoryStore) Connect(ctx context.Context, edge Edge) (bool, error) {
	if err := validateEdge(edge); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if !s.exists(edge.From) || !s.exists(edge.To) {
		return false, nil
	}
	s.link(edge.From, edge.Rel, edge.To)
	return true, nil
}

func (s *MemoryStore) Disconnect(ctx context.Context, edge Edge) (bool, error) {
	if err := validateEdge(edge); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if !s.exists(edge.From) || !s.exists(edge.To) {
		return false, nil
	}
	s.unlink(edge.From, edge.Rel, edge.To)
	return true, nil
}

func (s *MemoryStore) HasEdge(ctx context.Context, edge Edge) (bool, error) {
	if err := validateEdge(edge); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	return s.out.has(edge.From, edge.Rel, edge.To), nil
}

func (s *MemoryStore) ConnectPair(ctx context.Context, a, b int64, rel RelType) (bool, error) {
	if err := validateEdge(Edge{From: UserRef(a), Rel: rel, To: UserRef(b)}); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if !s.exists(UserRef(a)) || !s.exists(UserRef(b)) {
		return false, nil
	}
	s.link(UserRef(a), rel, UserRef(b))
	s.link(UserRef(b), rel, UserRef(a))
	return true, nil
}

func (s *MemoryStore) DisconnectPair(ctx context.Context, a, b int64, rel RelType) (bool, error) {
	if err := validateEdge(Edge{From: UserRef(a), Rel: rel, To: UserRef(b)}); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return false, err
	}
	if !s.exists(UserRef(a)) || !s.exists(UserRef(b)) {
		return false, nil
	}
	s.unlink(UserRef(a), rel, UserRef(b))
	s.unlink(UserRef(b), rel, UserRef(a))
	return true, nil
}

func (s *MemoryStore) Neighbors(ctx context.Context, userID int64, rel RelType, dir Direction) ([]UserNode, error) {
	if err := validateEdge(Edge{From: UserRef(userID), Rel: rel, To: UserRef(0)}); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	index := s.out
	if dir == Incoming {
		index = s.in
	}
	return s.userNodes(index.list(UserRef(userID), rel)), nil
}

// ============================================================================
// Node Materialisation
// ============================================================================

func (s *MemoryStore) userNodes(refs []Ref) []UserNode {
	users := make([]UserNode, 0, len(refs))
	for _, ref := range refs {
		if user, ok := s.users[ref.ID]; ok {
			users = append(users, user)
		}
	}
	return users
}

func (s *MemoryStore) interestNodes(refs []Ref) []InterestNode {
	interests := make([]InterestNode, 0, len(refs))
	for _, ref := range refs {
		if interest, ok := s.interests[ref.Name]; ok {
			interests = append(interests, interest)
		}
	}
	return interests
}

func (s *MemoryStore) postNode(postID int64) PostNode {
	post := s.posts[postID]
	post.AuthorID = s.firstSource(PostRef(postID), RelPosted)
	return post
}
