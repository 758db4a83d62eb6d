package graph

import (
	"context"
	"sort"
)

// ============================================================================
// Traversal Queries (in-memory)
// ============================================================================

// rankUsers turns per-user counts into scores ordered by count desc then id asc
func (s *MemoryStore) rankUsers(counts map[int64]int64, limit int) []UserScore {
	scores := make([]UserScore, 0, len(counts))
	for id, count := range counts {
		user, ok := s.users[id]
		if !ok {
			continue
		}
		scores = append(scores, UserScore{User: user, Score: count})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].User.UserID < scores[j].User.UserID
	})
	return applyLimit(scores, limit)
}

// sortPosts orders by created_at desc then post id desc
func sortPosts(posts []PostNode) {
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].PostID > posts[j].PostID
	})
}

func (s *MemoryStore) SuggestFriends(ctx context.Context, userID int64, limit int) ([]UserScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	self := UserRef(userID)
	if !s.exists(self) {
		return []UserScore{}, nil
	}

	// Each friend contributes at most one path to a candidate, so the count equals distinct mutual friends.
	mutual := make(map[int64]int64)
	for _, friend := range s.out.list(self, RelFriendOf) {
		for _, candidate := range s.out.list(friend, RelFriendOf) {
			if candidate == self || s.out.has(self, RelFriendOf, candidate) {
				continue
			}
			mutual[candidate.ID]++
		}
	}
	return s.rankUsers(mutual, limit), nil
}

func (s *MemoryStore) SuggestFollows(ctx context.Context, userID int64, limit int) ([]UserScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	self := UserRef(userID)
	if !s.exists(self) {
		return []UserScore{}, nil
	}

	shared := make(map[int64]int64)
	for _, interest := range s.out.list(self, RelInterestedIn) {
		for _, candidate := range s.in.list(interest, RelInterestedIn) {
			if candidate == self || s.out.has(self, RelFollows, candidate) {
				continue
			}
			shared[candidate.ID]++
		}
	}
	return s.rankUsers(shared, limit), nil
}

func (s *MemoryStore) CommonInterests(ctx context.Context, userA, userB int64) ([]InterestNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var common []Ref
	for _, interest := range s.out.list(UserRef(userA), RelInterestedIn) {
		if s.out.has(UserRef(userB), RelInterestedIn, interest) {
			common = append(common, interest)
		}
	}
	return s.interestNodes(common), nil
}

func (s *MemoryStore) TrendingInterests(ctx context.Context, limit int) ([]InterestCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	counts := make([]InterestCount, 0, len(s.interests))
	for name, interest := range s.interests {
		tagged := int64(len(s.in[InterestRef(name)][RelTaggedWith]))
		if tagged == 0 {
			continue
		}
		counts = append(counts, InterestCount{Interest: interest, Count: tagged})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Interest.Name < counts[j].Interest.Name
	})
	return applyLimit(counts, limit), nil
}

func (s *MemoryStore) Influencers(ctx context.Context, limit int) ([]UserScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	followers := make(map[int64]int64)
	for id := range s.users {
		if n := int64(len(s.in[UserRef(id)][RelFollows])); n > 0 {
			followers[id] = n
		}
	}
	return s.rankUsers(followers, limit), nil
}

func (s *MemoryStore) NetworkStats(ctx context.Context, userID int64) (NetworkStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return NetworkStats{}, err
	}

	self := UserRef(userID)
	if !s.exists(self) {
		return NetworkStats{}, nil
	}

	// FRIEND_OF is counted undirected, as distinct neighbours in either direction.
	friends := make(map[Ref]struct{})
	for ref := range s.out[self][RelFriendOf] {
		friends[ref] = struct{}{}
	}
	for ref := range s.in[self][RelFriendOf] {
		friends[ref] = struct{}{}
	}

	return NetworkStats{
		Following: int64(len(s.out[self][RelFollows])),
		Followers: int64(len(s.in[self][RelFollows])),
		Friends:   int64(len(friends)),
		Posts:     int64(len(s.out[self][RelPosted])),
		Interests: int64(len(s.out[self][RelInterestedIn])),
	}, nil
}

func (s *MemoryStore) EgoNetwork(ctx context.Context, userID int64) (EgoNetwork, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return EgoNetwork{}, err
	}

	center, ok := s.users[userID]
	if !ok {
		return emptyEgoNetwork(), nil
	}
	self := UserRef(userID)
	return buildEgoNetwork(center,
		s.userNodes(s.in.list(self, RelFollows)),
		s.userNodes(s.out.list(self, RelFollows)),
	), nil
}

func (s *MemoryStore) Feed(ctx context.Context, userID int64, limit int) ([]PostNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	self := UserRef(userID)
	if !s.exists(self) {
		return []PostNode{}, nil
	}

	seen := make(map[int64]struct{})
	authors := append([]Ref{self}, s.out.list(self, RelFollows)...)
	posts := make([]PostNode, 0)
	for _, author := range authors {
		for _, ref := range s.out.list(author, RelPosted) {
			if _, dup := seen[ref.ID]; dup {
				continue
			}
			seen[ref.ID] = struct{}{}
			posts = append(posts, s.postNode(ref.ID))
		}
	}
	sortPosts(posts)
	return applyLimit(posts, limit), nil
}

func (s *MemoryStore) UserPosts(ctx context.Context, userID int64, limit int) ([]PostNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	refs := s.out.list(UserRef(userID), RelPosted)
	posts := make([]PostNode, 0, len(refs))
	for _, ref := range refs {
		post := s.posts[ref.ID]
		post.AuthorID = userID
		posts = append(posts, post)
	}
	sortPosts(posts)
	return applyLimit(posts, limit), nil
}

func (s *MemoryStore) AllPosts(ctx context.Context, limit int) ([]PostNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	posts := make([]PostNode, 0, len(s.posts))
	for id := range s.posts {
		posts = append(posts, s.postNode(id))
	}
	sortPosts(posts)
	return applyLimit(posts, limit), nil
}

func (s *MemoryStore) PostsByInterest(ctx context.Context, name string, limit int) ([]PostNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	refs := s.in.list(InterestRef(normalizeName(name)), RelTaggedWith)
	posts := make([]PostNode, 0, len(refs))
	for _, ref := range refs {
		posts = append(posts, s.postNode(ref.ID))
	}
	sortPosts(posts)
	return applyLimit(posts, limit), nil
}

func (s *MemoryStore) UserInterests(ctx context.Context, userID int64) ([]InterestNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.interestNodes(s.out.list(UserRef(userID), RelInterestedIn)), nil
}

func (s *MemoryStore) PostLikeCount(ctx context.Context, postID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	return int64(len(s.in[PostRef(postID)][RelLikes])), nil
}

func (s *MemoryStore) HasLiked(ctx context.Context, userID, postID int64) (bool, error) {
	return s.HasEdge(ctx, Edge{From: UserRef(userID), Rel: RelLikes, To: PostRef(postID)})
}
