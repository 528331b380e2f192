package gate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeState 内存版 session.State
type fakeState struct {
	v      bool
	sets   int
	clears int
	err    error
}

func (f *fakeState) Get(context.Context) (bool, error) { return f.v, f.err }
func (f *fakeState) Set(_ context.Context, v bool) error {
	if f.err != nil {
		return f.err
	}
	f.sets++
	f.v = v
	return nil
}
func (f *fakeState) Clear(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.clears++
	f.v = false
	return nil
}

type attempt struct {
	username string
	result   Result
}

type fakeRecorder struct {
	mu  sync.Mutex
	got []attempt
	err error
}

func (f *fakeRecorder) RecordAttempt(_ context.Context, username string, r Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, attempt{username, r})
	return f.err
}

func newTestGate(t *testing.T, rec AttemptRecorder) *Gate {
	t.Helper()
	g, err := New(Options{Username: "admin", Password: "@Dmin123456", Recorder: rec})
	require.NoError(t, err)
	return g
}

func TestSubmit_Success(t *testing.T) {
	rec := &fakeRecorder{}
	g := newTestGate(t, rec)
	st := &fakeState{}

	out, err := g.Submit(context.Background(), st, Credentials{Username: "admin", Password: "@Dmin123456"})
	require.NoError(t, err)
	assert.Equal(t, HomePath, out.Redirect)
	assert.True(t, st.v)
	assert.Equal(t, []attempt{{"admin", ResultAccepted}}, rec.got)

	ok, err := g.Authorized(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubmit_WrongCredentials(t *testing.T) {
	rec := &fakeRecorder{}
	g := newTestGate(t, rec)

	tests := []Credentials{
		{Username: "admin", Password: "@Dmin1234567"},
		{Username: "root1", Password: "@Dmin123456"},
		{Username: "Admin", Password: "@Dmin123456"},
	}
	for _, c := range tests {
		st := &fakeState{}
		_, err := g.Submit(context.Background(), st, c)
		require.ErrorIs(t, err, ErrAuthentication)
		assert.False(t, st.v)
		assert.Zero(t, st.sets, "flag untouched")
	}
	assert.Len(t, rec.got, 3)
	assert.Equal(t, ResultRejected, rec.got[0].result)
}

func TestSubmit_WrongCredentialsKeepExistingFlag(t *testing.T) {
	g := newTestGate(t, nil)
	st := &fakeState{v: true}
	_, err := g.Submit(context.Background(), st, Credentials{Username: "admin", Password: "Wrong123!"})
	require.ErrorIs(t, err, ErrAuthentication)
	assert.True(t, st.v)
}

func TestSubmit_ValidationRunsFirst(t *testing.T) {
	rec := &fakeRecorder{}
	g := newTestGate(t, rec)

	tests := []struct {
		name   string
		in     Credentials
		fields [][2]string
		failed []string
	}{
		{
			name:   "both empty",
			in:     Credentials{},
			fields: [][2]string{{"username", "required"}, {"password", "required"}},
			failed: DefaultPolicy.Failed(""),
		},
		{
			name:   "short username",
			in:     Credentials{Username: "adm", Password: "@Dmin123456"},
			fields: [][2]string{{"username", "min"}},
		},
		{
			name:   "weak password",
			in:     Credentials{Username: "admin", Password: "Abcdefg1"},
			fields: [][2]string{{"password", "password_policy"}},
			failed: []string{"At least one special character (@$!%*?&)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeState{}
			_, err := g.Submit(context.Background(), st, tt.in)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			require.Len(t, ve.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.True(t, ve.Has(f[0], f[1]), "missing %v in %+v", f, ve.Fields)
			}
			assert.Equal(t, tt.failed, ve.FailedRules)
			assert.Len(t, ve.Rules, 5)
			assert.Zero(t, st.sets)
		})
	}
	for _, a := range rec.got {
		assert.Equal(t, ResultInvalid, a.result)
	}
}

func TestValidate_EmptyPasswordFailsEveryRule(t *testing.T) {
	g := newTestGate(t, nil)
	var ve *ValidationError
	require.ErrorAs(t, g.Validate(Credentials{Username: "admin"}), &ve)
	require.True(t, ve.Has("password", "required"))
	assert.Len(t, ve.FailedRules, len(DefaultPolicy))
	for _, r := range ve.Rules {
		assert.False(t, r.Passed, r.Label)
	}
}

func TestValidate_Messages(t *testing.T) {
	g := newTestGate(t, nil)
	err := g.Validate(Credentials{Username: "ab", Password: ""})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	msgs := []string{ve.Fields[0].Message, ve.Fields[1].Message}
	assert.Contains(t, msgs, "Username must be at least 4 characters")
	assert.Contains(t, msgs, "Password is required")
	assert.Contains(t, ve.Error(), "validation failed")
}

func TestSubmit_RecorderFailureIgnored(t *testing.T) {
	g := newTestGate(t, &fakeRecorder{err: errors.New("db down")})
	st := &fakeState{}
	_, err := g.Submit(context.Background(), st, Credentials{Username: "admin", Password: "@Dmin123456"})
	require.NoError(t, err)
	assert.True(t, st.v)
}

func TestSubmit_StoreFailure(t *testing.T) {
	g := newTestGate(t, nil)
	st := &fakeState{err: errors.New("redis down")}
	_, err := g.Submit(context.Background(), st, Credentials{Username: "admin", Password: "@Dmin123456"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthentication)
}

func TestLogout_Idempotent(t *testing.T) {
	g := newTestGate(t, nil)
	st := &fakeState{v: true}

	out, err := g.Logout(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, LoginPath, out.Redirect)
	assert.False(t, st.v)

	out, err = g.Logout(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, LoginPath, out.Redirect)
	assert.False(t, st.v)

	ok, err := g.Authorized(context.Background(), st)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_NoSideEffects(t *testing.T) {
	rec := &fakeRecorder{}
	g := newTestGate(t, rec)
	assert.Len(t, g.Evaluate("x"), 5)
	assert.Empty(t, rec.got)
}

func TestNew_RequiresAccount(t *testing.T) {
	_, err := New(Options{Username: "admin"})
	require.Error(t, err)
}
