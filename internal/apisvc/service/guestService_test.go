package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
)

func newGuestFixture() (*GuestService, *fakeGuestStore, *fakeMatchStore, *fakeUserStore) {
	guestStore := newFakeGuestStore()
	matchStore := newFakeMatchStore()
	userStore := newFakeUserStore()
	return NewGuestService(guestStore, matchStore, userStore), guestStore, matchStore, userStore
}

func TestCreateGuestValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newGuestFixture()
	owner := primitive.NewObjectID()

	_, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "   "})
	assert.True(t, models.IsValidation(err))

	_, err = svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice", Email: "not-an-email"})
	assert.True(t, models.IsValidation(err))

	longNotes := make([]byte, maxNotesLen+1)
	for i := range longNotes {
		longNotes[i] = 'x'
	}
	_, err = svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice", Notes: string(longNotes)})
	assert.True(t, models.IsValidation(err))
}

func TestCreateGuestTrimsAndStores(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newGuestFixture()
	owner := primitive.NewObjectID()

	guest, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "  Alice  ", Email: "Alice@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", guest.Name)
	assert.Equal(t, "alice@example.com", guest.Email)
	assert.Equal(t, owner, guest.CreatedBy)
	assert.False(t, guest.ID.IsZero())
}

func TestCreateGuestDuplicateNamePerOwner(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newGuestFixture()
	owner := primitive.NewObjectID()

	_, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice"})
	require.NoError(t, err)

	_, err = svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "alice"})
	assert.True(t, models.IsDuplicate(err))

	// a different owner can reuse the name
	_, err = svc.CreateGuest(ctx, primitive.NewObjectID(), CreateGuestInput{Name: "Alice"})
	assert.NoError(t, err)
}

func TestSearchGuestsShortQueryReturnsNothing(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newGuestFixture()
	owner := primitive.NewObjectID()

	_, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice"})
	require.NoError(t, err)

	guests, err := svc.SearchGuests(ctx, owner, "a")
	require.NoError(t, err)
	assert.Empty(t, guests)

	guests, err = svc.SearchGuests(ctx, owner, "al")
	require.NoError(t, err)
	assert.Len(t, guests, 1)
}

func TestSearchGuestsExcludesSynced(t *testing.T) {
	ctx := context.Background()
	svc, guestStore, _, _ := newGuestFixture()
	owner := primitive.NewObjectID()

	guest, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice"})
	require.NoError(t, err)
	require.NoError(t, guestStore.MarkSynced(ctx, guest.ID, primitive.NewObjectID(), time.Now()))

	guests, err := svc.SearchGuests(ctx, owner, "alice")
	require.NoError(t, err)
	assert.Empty(t, guests)
}

func TestDeleteGuestWithMatchesIsRefused(t *testing.T) {
	ctx := context.Background()
	svc, _, matchStore, _ := newGuestFixture()
	owner := primitive.NewObjectID()

	guest, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice"})
	require.NoError(t, err)

	seedMatch(t, matchStore, owner, time.Now(),
		models.GuestPlayer(&guest.ID, "Alice", ""),
	)

	err = svc.DeleteGuest(ctx, guest.ID, owner)
	assert.True(t, models.IsConflict(err))

	// still there
	_, err = svc.GetGuest(ctx, guest.ID, owner)
	assert.NoError(t, err)
}

func TestDeleteGuestWithoutMatches(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newGuestFixture()
	owner := primitive.NewObjectID()

	guest, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteGuest(ctx, guest.ID, owner))

	err = svc.DeleteGuest(ctx, guest.ID, owner)
	assert.True(t, models.IsNotFound(err))
}

func TestSyncGuestAttachesUserAndBackfillsReference(t *testing.T) {
	ctx := context.Background()
	svc, _, matchStore, userStore := newGuestFixture()
	owner := primitive.NewObjectID()

	target := &models.User{Username: "alice_real", Email: "alice@example.com"}
	require.NoError(t, userStore.Insert(ctx, target))

	guest, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice"})
	require.NoError(t, err)

	// m1 references the guest record, m2 only carries the name
	m1 := seedMatch(t, matchStore, owner, time.Now().AddDate(0, 0, -2),
		models.RegisteredPlayer(owner),
		models.GuestPlayer(&guest.ID, "Alice", ""),
	)
	m2 := seedMatch(t, matchStore, owner, time.Now().AddDate(0, 0, -1),
		models.RegisteredPlayer(owner),
		models.GuestPlayer(nil, "alice", ""),
	)

	result, err := svc.SyncGuest(ctx, guest.ID, owner, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.UpdatedMatches)
	require.NotNil(t, result.Guest.SyncedWith)
	assert.Equal(t, target.ID, *result.Guest.SyncedWith)
	assert.NotNil(t, result.Guest.SyncedAt)

	stored1, err := matchStore.GetByID(ctx, m1.ID)
	require.NoError(t, err)
	require.NotNil(t, stored1.Players[1].User)
	assert.Equal(t, target.ID, *stored1.Players[1].User)

	// the transient entry got the guest reference backfilled
	stored2, err := matchStore.GetByID(ctx, m2.ID)
	require.NoError(t, err)
	require.NotNil(t, stored2.Players[1].User)
	require.NotNil(t, stored2.Players[1].Guest)
	assert.Equal(t, guest.ID, *stored2.Players[1].Guest)
	assert.Equal(t, "alice", stored2.Players[1].GuestName)
}

func TestSyncGuestIsOneShot(t *testing.T) {
	ctx := context.Background()
	svc, _, matchStore, userStore := newGuestFixture()
	owner := primitive.NewObjectID()

	target := &models.User{Username: "alice_real", Email: "alice@example.com"}
	require.NoError(t, userStore.Insert(ctx, target))

	guest, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice"})
	require.NoError(t, err)

	m := seedMatch(t, matchStore, owner, time.Now(),
		models.GuestPlayer(&guest.ID, "Alice", ""),
	)

	_, err = svc.SyncGuest(ctx, guest.ID, owner, target.ID)
	require.NoError(t, err)

	other := primitive.NewObjectID()
	_, err = svc.SyncGuest(ctx, guest.ID, owner, other)
	assert.True(t, models.IsConflict(err))

	// the refused second sync changed nothing
	stored, err := matchStore.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, *stored.Players[0].User)
}

func TestSyncGuestRefreshesTotals(t *testing.T) {
	ctx := context.Background()
	svc, guestStore, matchStore, userStore := newGuestFixture()
	owner := primitive.NewObjectID()

	target := &models.User{Username: "alice_real", Email: "alice@example.com"}
	require.NoError(t, userStore.Insert(ctx, target))

	guest, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice"})
	require.NoError(t, err)

	winner := models.GuestPlayer(&guest.ID, "Alice", "")
	winner.IsWinner = true
	seedMatch(t, matchStore, owner, time.Now().AddDate(0, 0, -1), winner)
	seedMatch(t, matchStore, owner, time.Now(), models.GuestPlayer(&guest.ID, "Alice", ""))

	_, err = svc.SyncGuest(ctx, guest.ID, owner, target.ID)
	require.NoError(t, err)

	stored := guestStore.guests[guest.ID]
	assert.Equal(t, 2, stored.TotalMatches)
	assert.Equal(t, 1, stored.TotalWins)
}

func TestGetGuestComputesWinRate(t *testing.T) {
	ctx := context.Background()
	svc, _, matchStore, _ := newGuestFixture()
	owner := primitive.NewObjectID()

	guest, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice"})
	require.NoError(t, err)

	winner := models.GuestPlayer(&guest.ID, "Alice", "")
	winner.IsWinner = true
	seedMatch(t, matchStore, owner, time.Now().AddDate(0, 0, -2), winner)
	seedMatch(t, matchStore, owner, time.Now().AddDate(0, 0, -1), models.GuestPlayer(&guest.ID, "Alice", ""))
	seedMatch(t, matchStore, owner, time.Now(), models.GuestPlayer(&guest.ID, "Alice", ""))

	detail, err := svc.GetGuest(ctx, guest.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, detail.Stats.TotalMatches)
	assert.Equal(t, 1, detail.Stats.TotalWins)
	assert.InDelta(t, 33.3, detail.Stats.WinRate, 0.01)
}

func TestGetGuestScopedToOwner(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newGuestFixture()
	owner := primitive.NewObjectID()

	guest, err := svc.CreateGuest(ctx, owner, CreateGuestInput{Name: "Alice"})
	require.NoError(t, err)

	_, err = svc.GetGuest(ctx, guest.ID, primitive.NewObjectID())
	assert.True(t, models.IsNotFound(err))
}
