package identity

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/config"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/logger"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/monitoring"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(demoMode bool) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	svc := NewService(
		config.IdentityConfig{DemoMode: demoMode, DefaultPhone: "+1 (555) 123-4567"},
		repo,
		NewPasswordManager(bcrypt.MinCost),
		monitoring.NewMetricsCollector("identity-test"),
		logger.NewNop(),
	)
	return svc, repo
}

func TestDisplayNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{email: "john.q.public@mail.com", want: "John Q Public"},
		{email: "jane@x.com", want: "Jane"},
		{email: "mary_ann-smith@x.com", want: "Mary Ann Smith"},
		{email: "bob2@x.com", want: "Bob "},
		{email: "McDonald@x.com", want: "McDonald"},
		{email: "no-at-sign", want: "No At Sign"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayNameFromEmail(tt.email))
		})
	}
}

func TestResolveOrCreate_SynthesizesPatient(t *testing.T) {
	svc, _ := newTestService(false)

	p, err := svc.ResolveOrCreate(context.Background(), "john.q.public@mail.com")
	require.NoError(t, err)

	assert.Equal(t, "John Q Public", p.Name)
	assert.Equal(t, "john.q.public@mail.com", p.Email)
	assert.Equal(t, "+1 (555) 123-4567", p.Phone)
	assert.True(t, strings.HasPrefix(p.ID, PatientIDPrefix))
	assert.False(t, p.CreatedAt.IsZero())
}

func TestResolveOrCreate_Idempotent(t *testing.T) {
	svc, repo := newTestService(false)
	ctx := context.Background()

	first, err := svc.ResolveOrCreate(ctx, "new@x.com")
	require.NoError(t, err)
	second, err := svc.ResolveOrCreate(ctx, "new@x.com")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	n, _ := repo.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestResolveOrCreate_CaseSensitive(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	lower, err := svc.ResolveOrCreate(ctx, "a@x.com")
	require.NoError(t, err)
	upper, err := svc.ResolveOrCreate(ctx, "A@x.com")
	require.NoError(t, err)

	assert.NotEqual(t, lower.ID, upper.ID)
}

func TestResolveOrCreate_ConcurrentSameEmail(t *testing.T) {
	svc, repo := newTestService(false)
	const workers = 32

	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.ResolveOrCreate(context.Background(), "burst@x.com")
			if assert.NoError(t, err) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	n, _ := repo.Count(context.Background())
	assert.Equal(t, 1, n)
}

func TestResolveOrCreate_EmptyEmail(t *testing.T) {
	svc, _ := newTestService(false)
	_, err := svc.ResolveOrCreate(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrMissingFields)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	first, err := svc.Register(ctx, &types.RegisterRequest{Name: "Jane Doe", Email: "jane@x.com", Password: "pw", Phone: "555-0001"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", first.Name)
	assert.NotEmpty(t, first.PasswordHash)
	assert.NotEqual(t, "pw", first.PasswordHash)

	_, err = svc.Register(ctx, &types.RegisterRequest{Name: "Jane Doe2", Email: "jane@x.com", Password: "pw2", Phone: "555-0002"})
	assert.ErrorIs(t, err, types.ErrDuplicateEmail)
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _ := newTestService(false)

	for _, req := range []*types.RegisterRequest{
		{Email: "a@x.com", Password: "pw"},
		{Name: "A", Password: "pw"},
		{Name: "A", Email: "a@x.com"},
	} {
		_, err := svc.Register(context.Background(), req)
		assert.ErrorIs(t, err, types.ErrMissingFields)
	}
}

func TestRegister_ClaimsPatientCreatedByBooking(t *testing.T) {
	svc, repo := newTestService(false)
	ctx := context.Background()

	walkIn, err := svc.ResolveOrCreate(ctx, "walkin@x.com")
	require.NoError(t, err)

	// Without a password the walk-in cannot log in yet.
	_, err = svc.Login(ctx, &types.LoginRequest{Email: "walkin@x.com", Password: "pw"})
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)

	registered, err := svc.Register(ctx, &types.RegisterRequest{Name: "Walk In", Email: "walkin@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, walkIn.ID, registered.ID)
	assert.Equal(t, "Walk In", registered.Name)
	assert.Equal(t, walkIn.Phone, registered.Phone)

	p, err := svc.Login(ctx, &types.LoginRequest{Email: "walkin@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, walkIn.ID, p.ID)

	n, _ := repo.Count(ctx)
	assert.Equal(t, 1, n)

	// Once claimed, the email behaves like any registered one.
	_, err = svc.Register(ctx, &types.RegisterRequest{Name: "Someone Else", Email: "walkin@x.com", Password: "pw2"})
	assert.ErrorIs(t, err, types.ErrDuplicateEmail)
	_, err = svc.Login(ctx, &types.LoginRequest{Email: "walkin@x.com", Password: "pw2"})
	assert.ErrorIs(t, err, types.ErrInvalidCredentials)
}

func TestRegister_ConcurrentClaimsSucceedOnce(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	_, err := svc.ResolveOrCreate(ctx, "walkin@x.com")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, &types.RegisterRequest{Name: "Walk In", Email: "walkin@x.com", Password: "pw"})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, types.ErrDuplicateEmail)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid password", func(t *testing.T) {
		svc, _ := newTestService(false)
		registered, err := svc.Register(ctx, &types.RegisterRequest{Name: "Jane", Email: "jane@x.com", Password: "secret"})
		require.NoError(t, err)

		p, err := svc.Login(ctx, &types.LoginRequest{Email: "jane@x.com", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, registered.ID, p.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _ := newTestService(true)
		_, err := svc.Register(ctx, &types.RegisterRequest{Name: "Jane", Email: "jane@x.com", Password: "secret"})
		require.NoError(t, err)

		_, err = svc.Login(ctx, &types.LoginRequest{Email: "jane@x.com", Password: "nope"})
		assert.ErrorIs(t, err, types.ErrInvalidCredentials)
	})

	t.Run("unknown email without demo mode", func(t *testing.T) {
		svc, repo := newTestService(false)
		_, err := svc.Login(ctx, &types.LoginRequest{Email: "ghost@x.com", Password: "pw"})
		assert.ErrorIs(t, err, types.ErrInvalidCredentials)

		n, _ := repo.Count(ctx)
		assert.Zero(t, n)
	})

	t.Run("unknown email in demo mode", func(t *testing.T) {
		svc, _ := newTestService(true)
		p, err := svc.Login(ctx, &types.LoginRequest{Email: "john.q.public@mail.com", Password: "anything"})
		require.NoError(t, err)
		assert.Equal(t, "John Q Public", p.Name)
		assert.Equal(t, "+1 (555) 123-4567", p.Phone)

		again, err := svc.Login(ctx, &types.LoginRequest{Email: "john.q.public@mail.com", Password: "other"})
		require.NoError(t, err)
		assert.Equal(t, p.ID, again.ID)
	})

	t.Run("passwordless patient requires demo mode", func(t *testing.T) {
		svc, _ := newTestService(false)
		_, err := svc.ResolveOrCreate(ctx, "walkin@x.com")
		require.NoError(t, err)

		_, err = svc.Login(ctx, &types.LoginRequest{Email: "walkin@x.com", Password: "pw"})
		assert.ErrorIs(t, err, types.ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc, _ := newTestService(true)
		_, err := svc.Login(ctx, &types.LoginRequest{Email: "a@x.com"})
		assert.ErrorIs(t, err, types.ErrMissingFields)
	})
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	_, err := svc.ResolveOrCreate(ctx, "jane@x.com")
	require.NoError(t, err)

	phone := "555-9999"
	gender := "female"
	p, err := svc.UpdateProfile(ctx, "jane@x.com", &types.PatientUpdates{Phone: &phone, Gender: &gender})
	require.NoError(t, err)
	assert.Equal(t, "555-9999", p.Phone)
	assert.Equal(t, "female", p.Gender)
	assert.Equal(t, "Jane", p.Name)

	_, err = svc.UpdateProfile(ctx, "ghost@x.com", &types.PatientUpdates{Phone: &phone})
	assert.ErrorIs(t, err, types.ErrPatientNotFound)
}
