package activities

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestRegistry(t *testing.T, seed ...Activity) *Registry {
	t.Helper()
	if len(seed) == 0 {
		seed = DefaultSeed()
	}
	r, err := New(seed)
	require.NoError(t, err)
	return r
}

func chessClub(capacity int, participants ...string) Activity {
	return Activity{
		Name:            "Chess Club",
		Description:     "Learn strategies and compete in chess tournaments",
		Schedule:        "Fridays, 3:30 PM - 5:00 PM",
		MaxParticipants: capacity,
		Participants:    participants,
	}
}

// assertWithinCapacity checks the roster invariants for every activity.
func assertWithinCapacity(t *testing.T, r *Registry) {
	t.Helper()
	for _, a := range r.List() {
		assert.LessOrEqual(t, len(a.Participants), a.MaxParticipants, "activity %q over capacity", a.Name)
		seen := map[string]bool{}
		for _, p := range a.Participants {
			assert.False(t, seen[p], "activity %q lists %s twice", a.Name, p)
			seen[p] = true
		}
	}
}

// ---------------------------------------------------------------------------
// List / Get
// ---------------------------------------------------------------------------

func TestList_PreservesSeedOrder(t *testing.T) {
	r := newTestRegistry(t)

	want := make([]string, 0)
	for _, a := range DefaultSeed() {
		want = append(want, a.Name)
	}
	assert.Equal(t, want, r.List().Names())
}

func TestList_ReturnsCopies(t *testing.T) {
	r := newTestRegistry(t, chessClub(12, "a@x.edu"))

	list := r.List()
	list[0].Participants[0] = "mutated@x.edu"
	list[0].MaxParticipants = 1

	a, err := r.Get("Chess Club")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.edu"}, a.Participants)
	assert.Equal(t, 12, a.MaxParticipants)
}

func TestNew_CopiesSeed(t *testing.T) {
	seed := []Activity{chessClub(12, "a@x.edu")}
	r := newTestRegistry(t, seed...)

	seed[0].Participants[0] = "mutated@x.edu"

	a, err := r.Get("Chess Club")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.edu"}, a.Participants)
}

func TestGet_Unknown(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Get("Unknown Club")
	assert.ErrorIs(t, err, ErrActivityNotFound)
	assert.True(t, IsNotFound(err))
}

func TestCatalog_MarshalJSON(t *testing.T) {
	r := newTestRegistry(t,
		Activity{Name: "Zeta", Description: "z", Schedule: "Mon", MaxParticipants: 2},
		chessClub(12, "a@x.edu"),
	)

	data, err := json.Marshal(r.List())
	require.NoError(t, err)

	// Keys stay in seed order, not sorted, and an empty roster encodes as [].
	assert.JSONEq(t, `{
		"Zeta": {"description": "z", "schedule": "Mon", "max_participants": 2, "participants": []},
		"Chess Club": {
			"description": "Learn strategies and compete in chess tournaments",
			"schedule": "Fridays, 3:30 PM - 5:00 PM",
			"max_participants": 12,
			"participants": ["a@x.edu"]
		}
	}`, string(data))
	assert.Less(t, strings.Index(string(data), "Zeta"), strings.Index(string(data), "Chess Club"))
}

// ---------------------------------------------------------------------------
// Signup
// ---------------------------------------------------------------------------

func TestSignup_Success(t *testing.T) {
	r := newTestRegistry(t, chessClub(12))

	a, err := r.Signup("Chess Club", "a@x.edu")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.edu"}, a.Participants)
	assert.Equal(t, 11, a.SpotsLeft())

	got, _ := r.Get("Chess Club")
	assert.Equal(t, []string{"a@x.edu"}, got.Participants)
}

func TestSignup_AppendsInOrder(t *testing.T) {
	r := newTestRegistry(t, chessClub(12))

	for _, email := range []string{"c@x.edu", "a@x.edu", "b@x.edu"} {
		_, err := r.Signup("Chess Club", email)
		require.NoError(t, err)
	}

	got, _ := r.Get("Chess Club")
	assert.Equal(t, []string{"c@x.edu", "a@x.edu", "b@x.edu"}, got.Participants)
}

func TestSignup_UnknownActivity(t *testing.T) {
	r := newTestRegistry(t)
	before := r.List()

	_, err := r.Signup("Unknown Club", "a@x.edu")
	assert.ErrorIs(t, err, ErrActivityNotFound)
	assert.Equal(t, before, r.List())
}

func TestSignup_Duplicate(t *testing.T) {
	r := newTestRegistry(t, chessClub(12))
	_, err := r.Signup("Chess Club", "a@x.edu")
	require.NoError(t, err)

	_, err = r.Signup("Chess Club", "a@x.edu")
	assert.ErrorIs(t, err, ErrAlreadySignedUp)
	assert.True(t, IsConflict(err))
	assert.Equal(t, "Student already signed up for this activity", err.Error())

	got, _ := r.Get("Chess Club")
	assert.Equal(t, []string{"a@x.edu"}, got.Participants)
}

func TestSignup_Full(t *testing.T) {
	r := newTestRegistry(t, chessClub(2, "a@x.edu", "b@x.edu"))

	_, err := r.Signup("Chess Club", "c@x.edu")
	assert.ErrorIs(t, err, ErrActivityFull)
	assert.True(t, IsConflict(err))

	got, _ := r.Get("Chess Club")
	assert.Equal(t, []string{"a@x.edu", "b@x.edu"}, got.Participants)
}

func TestSignup_DuplicateCheckedBeforeCapacity(t *testing.T) {
	r := newTestRegistry(t, chessClub(1, "a@x.edu"))

	_, err := r.Signup("Chess Club", "a@x.edu")
	assert.ErrorIs(t, err, ErrAlreadySignedUp)
}

func TestSignup_ConcurrentNeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	r := newTestRegistry(t, chessClub(capacity))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.Signup("Chess Club", fmt.Sprintf("s%d@x.edu", i)); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, accepted)
	assertWithinCapacity(t, r)
}

func TestSignup_ConcurrentSameEmail(t *testing.T) {
	r := newTestRegistry(t, chessClub(12))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Signup("Chess Club", "a@x.edu")
		}()
	}
	wg.Wait()

	got, _ := r.Get("Chess Club")
	assert.Equal(t, []string{"a@x.edu"}, got.Participants)
}

// ---------------------------------------------------------------------------
// Unregister
// ---------------------------------------------------------------------------

func TestUnregister_Success(t *testing.T) {
	r := newTestRegistry(t, chessClub(12, "a@x.edu", "b@x.edu", "c@x.edu"))

	a, err := r.Unregister("Chess Club", "b@x.edu")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.edu", "c@x.edu"}, a.Participants)
	assert.NotContains(t, a.Participants, "b@x.edu")
}

func TestUnregister_UnknownActivity(t *testing.T) {
	r := newTestRegistry(t)
	before := r.List()

	_, err := r.Unregister("Unknown Club", "a@x.edu")
	assert.ErrorIs(t, err, ErrActivityNotFound)
	assert.Equal(t, before, r.List())
}

func TestUnregister_MissingParticipant(t *testing.T) {
	r := newTestRegistry(t, chessClub(12, "a@x.edu"))

	_, err := r.Unregister("Chess Club", "missing@x.edu")
	assert.ErrorIs(t, err, ErrParticipantNotFound)
	assert.True(t, IsNotFound(err))

	got, _ := r.Get("Chess Club")
	assert.Equal(t, []string{"a@x.edu"}, got.Participants)
}

func TestUnregister_FreesCapacity(t *testing.T) {
	r := newTestRegistry(t, chessClub(1, "a@x.edu"))

	_, err := r.Unregister("Chess Club", "a@x.edu")
	require.NoError(t, err)

	_, err = r.Signup("Chess Club", "b@x.edu")
	assert.NoError(t, err)
}

// ---------------------------------------------------------------------------
// Invariants across a mixed sequence
// ---------------------------------------------------------------------------

func TestOperations_HoldInvariants(t *testing.T) {
	r := newTestRegistry(t)

	ops := []struct {
		signup   bool
		activity string
		email    string
	}{
		{true, "Chess Club", "new@mergington.edu"},
		{true, "Chess Club", "new@mergington.edu"},
		{false, "Chess Club", "michael@mergington.edu"},
		{false, "Chess Club", "michael@mergington.edu"},
		{true, "Unknown", "x@mergington.edu"},
		{false, "Gym Class", "john@mergington.edu"},
		{true, "Math Club", "a@mergington.edu"},
	}
	for _, op := range ops {
		before, _ := r.Get(op.activity)
		var err error
		if op.signup {
			_, err = r.Signup(op.activity, op.email)
		} else {
			_, err = r.Unregister(op.activity, op.email)
		}
		after, _ := r.Get(op.activity)

		switch {
		case err != nil:
			assert.Equal(t, before, after, "failed op must not mutate %q", op.activity)
		case op.signup:
			assert.Len(t, after.Participants, len(before.Participants)+1)
			assert.Contains(t, after.Participants, op.email)
		default:
			assert.Len(t, after.Participants, len(before.Participants)-1)
			assert.NotContains(t, after.Participants, op.email)
		}
		assertWithinCapacity(t, r)
	}
}

func TestError_KindHelpers(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsConflict(errors.New("boom")))
	wrapped := fmt.Errorf("signup: %w", ErrActivityFull)
	assert.True(t, IsConflict(wrapped))
	assert.ErrorIs(t, wrapped, ErrActivityFull)
}

// ---------------------------------------------------------------------------
// Observe
// ---------------------------------------------------------------------------

func TestObserve_ReportsCurrentStateAndChanges(t *testing.T) {
	r := newTestRegistry(t, chessClub(3, "a@x.edu"))

	var seen []int
	r.Observe(func(a Activity) { seen = append(seen, len(a.Participants)) })

	_, err := r.Signup("Chess Club", "b@x.edu")
	require.NoError(t, err)
	_, err = r.Signup("Chess Club", "b@x.edu")
	require.ErrorIs(t, err, ErrAlreadySignedUp)
	_, err = r.Unregister("Chess Club", "a@x.edu")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 1}, seen, "rejected operations must not be reported")
}

func TestObserve_LastReportMatchesRosterUnderConcurrency(t *testing.T) {
	r := newTestRegistry(t, chessClub(10))

	// Called with the registry lock held, so no extra locking is needed here.
	var last int
	r.Observe(func(a Activity) { last = len(a.Participants) })

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("s%d@x.edu", i%8)
			if i%2 == 0 {
				_, _ = r.Signup("Chess Club", email)
			} else {
				_, _ = r.Unregister("Chess Club", email)
			}
		}(i)
	}
	wg.Wait()

	got, err := r.Get("Chess Club")
	require.NoError(t, err)
	assert.Equal(t, len(got.Participants), last)
}
