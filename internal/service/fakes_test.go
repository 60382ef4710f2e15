package service

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/auth"
	"github.com/sakif/skillshare/internal/clock"
	"github.com/sakif/skillshare/internal/model"
	"github.com/sakif/skillshare/internal/repository"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTokens(t *testing.T, clk clock.Clock) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour, clk)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func testPasswords() *auth.PasswordService {
	return auth.NewPasswordServiceWithCost(bcrypt.MinCost)
}

// ============================================================
// Users
// ============================================================

// fakeUserRepo mirrors the SQLite store: copies in and out, unique email and
// username, compare-and-swap on Version.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int

	creates   int
	existsErr error
	// beforeUpdate runs inside UpdateUser before the version check, with the
	// lock released, so tests can slip in a competing write.
	beforeUpdate func()
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Skills = slices.Clone(u.Skills)
	c.Following = slices.Clone(u.Following)
	return &c
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return &apperror.AppError{Err: apperror.ErrConflict, Message: "username or email already in use"}
		}
	}
	if u.ID == "" {
		f.nextID++
		u.ID = "user-" + strconv.Itoa(f.nextID)
	}
	u.Version = 1
	f.users[u.ID] = cloneUser(u)
	f.creates++
	return nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool, key string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id }, id)
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email }, email)
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username }, username)
}

func (f *fakeUserRepo) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, err := f.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUserRepo) UserExistsByUsername(ctx context.Context, username string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, err := f.GetUserByUsername(ctx, username)
	return err == nil, nil
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, u *model.User) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.users[u.ID]
	if !ok {
		return apperror.NotFound("user", u.ID)
	}
	if stored.Version != u.Version {
		return repository.ErrStaleWrite
	}
	for id, other := range f.users {
		if id != u.ID && (other.Email == u.Email || other.Username == u.Username) {
			return &apperror.AppError{Err: apperror.ErrConflict, Message: "username or email already in use"}
		}
	}
	u.Version++
	f.users[u.ID] = cloneUser(u)
	return nil
}

// seed stores u directly and returns the stored copy.
func (f *fakeUserRepo) seed(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: username,
		Role:      model.RoleLearner,
		Skills:    []string{},
		Following: []string{},
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	if err := f.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return u
}

// ============================================================
// Posts
// ============================================================

type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[string]*model.Post
	nextID int

	updates      int
	beforeUpdate func()
	// alwaysStale makes every UpdatePost lose its swap.
	alwaysStale bool
}

var _ repository.PostRepository = (*fakePostRepo)(nil)

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post)}
}

func clonePost(p *model.Post) *model.Post {
	c := *p
	c.Likes = slices.Clone(p.Likes)
	c.Comments = slices.Clone(p.Comments)
	return &c
}

func (f *fakePostRepo) CreatePost(_ context.Context, p *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		f.nextID++
		p.ID = "post-" + strconv.Itoa(1000+f.nextID)
	}
	p.Version = 1
	f.posts[p.ID] = clonePost(p)
	return nil
}

func (f *fakePostRepo) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	return clonePost(p), nil
}

func (f *fakePostRepo) ListPostsByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	return f.ListPostsByAuthors(ctx, []string{authorID})
}

func (f *fakePostRepo) ListPostsByAuthors(_ context.Context, authorIDs []string) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Post{}
	for _, p := range f.posts {
		if slices.Contains(authorIDs, p.AuthorID) {
			out = append(out, *clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakePostRepo) UpdatePost(_ context.Context, p *model.Post) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.posts[p.ID]
	if !ok {
		return apperror.NotFound("post", p.ID)
	}
	if f.alwaysStale || stored.Version != p.Version {
		return repository.ErrStaleWrite
	}
	p.Version++
	f.posts[p.ID] = clonePost(p)
	f.updates++
	return nil
}

func (f *fakePostRepo) DeletePost(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) seed(t *testing.T, authorID, content string, at time.Time) *model.Post {
	t.Helper()
	p := &model.Post{
		AuthorID:  authorID,
		Content:   content,
		Likes:     []string{},
		Comments:  []model.Comment{},
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := f.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("seeding post: %v", err)
	}
	return p
}

// ============================================================
// Plans and notifications
// ============================================================

type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.LearningPlan
	next  int
}

var _ repository.LearningPlanRepository = (*fakePlanRepo)(nil)

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[string]*model.LearningPlan)}
}

func (f *fakePlanRepo) CreatePlan(_ context.Context, p *model.LearningPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	p.ID = "plan-" + strconv.Itoa(f.next)
	c := *p
	f.plans[p.ID] = &c
	return nil
}

func (f *fakePlanRepo) GetPlanByID(_ context.Context, id string) (*model.LearningPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, apperror.NotFound("learning plan", id)
	}
	c := *p
	return &c, nil
}

func (f *fakePlanRepo) ListPlans(_ context.Context) ([]model.LearningPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.LearningPlan{}
	for _, p := range f.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePlanRepo) ListPlansByUser(_ context.Context, userID string) ([]model.LearningPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.LearningPlan{}
	for _, p := range f.plans {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlanRepo) UpdatePlan(_ context.Context, p *model.LearningPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.plans[p.ID]; !ok {
		return apperror.NotFound("learning plan", p.ID)
	}
	c := *p
	f.plans[p.ID] = &c
	return nil
}

func (f *fakePlanRepo) DeletePlan(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.plans[id]; !ok {
		return apperror.NotFound("learning plan", id)
	}
	delete(f.plans, id)
	return nil
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	items     []model.Notification
	createErr error
}

var _ repository.NotificationRepository = (*fakeNotificationRepo)(nil)

func (f *fakeNotificationRepo) CreateNotification(_ context.Context, n *model.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = "n-" + strconv.Itoa(len(f.items)+1)
	f.items = append(f.items, *n)
	return nil
}

func (f *fakeNotificationRepo) ListNotifications(_ context.Context, userID string) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Notification{}
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].UserID == userID {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkNotificationRead(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].UserID == userID {
			f.items[i].Read = true
			return nil
		}
	}
	return apperror.NotFound("notification", id)
}

func (f *fakeNotificationRepo) snapshot() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}
