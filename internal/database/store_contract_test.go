package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammar1510/spark/internal/models"
)

// runStoreContract checks the behaviour every backend must share
func runStoreContract(t *testing.T, newDB func(t *testing.T) DBInterface) {
	ctx := context.Background()

	newUser := func(t *testing.T, db DBInterface, name string) *models.User {
		email := fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8])
		u, err := db.CreateUser(ctx, name, email, "hash")
		require.NoError(t, err)
		return u
	}

	t.Run("users", func(t *testing.T) {
		db := newDB(t)
		u := newUser(t, db, "chloe")

		_, err := db.CreateUser(ctx, "other", u.Email, "hash")
		assert.ErrorIs(t, err, ErrUserAlreadyExists)

		got, err := db.GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "hash", got.PasswordHash)
		assert.Equal(t, 18, got.Age)
		assert.NotNil(t, got.Images)

		_, err = db.GetUserByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrUserNotFound)

		_, err = db.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)

		other := newUser(t, db, "marcus")
		all, err := db.GetAllUsers(ctx, u.ID)
		require.NoError(t, err)
		ids := make([]string, 0, len(all))
		for _, x := range all {
			ids = append(ids, x.ID)
		}
		assert.Contains(t, ids, other.ID)
		assert.NotContains(t, ids, u.ID)
	})

	t.Run("profile and premium", func(t *testing.T) {
		db := newDB(t)
		u := newUser(t, db, "chloe")

		bio := "Coffee first"
		age := 29
		interests := []string{"Hiking", "Jazz"}
		updated, err := db.UpdateUser(ctx, u.ID, models.ProfileUpdate{Bio: &bio, Age: &age, Interests: &interests})
		require.NoError(t, err)
		assert.Equal(t, "chloe", updated.Name, "unset fields are kept")
		assert.Equal(t, bio, updated.Bio)
		assert.Equal(t, age, updated.Age)
		assert.Equal(t, interests, updated.Interests)
		assert.Equal(t, []string{}, updated.Images)

		name := "Chloe"
		_, err = db.UpdateUser(ctx, u.ID, models.ProfileUpdate{Name: &name})
		require.NoError(t, err)
		got, err := db.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Chloe", got.Name)
		assert.Equal(t, bio, got.Bio)
		assert.Equal(t, interests, got.Interests)
		assert.False(t, got.IsPremium)

		premium, err := db.SetPremium(ctx, u.ID, true)
		require.NoError(t, err)
		assert.True(t, premium.IsPremium)
		got, err = db.GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.True(t, got.IsPremium)

		_, err = db.UpdateUser(ctx, uuid.NewString(), models.ProfileUpdate{Bio: &bio})
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = db.SetPremium(ctx, uuid.NewString(), true)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("likes", func(t *testing.T) {
		db := newDB(t)
		a := newUser(t, db, "a")
		b := newUser(t, db, "b")

		mutual, err := db.RecordLike(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, mutual)

		mutual, err = db.RecordLike(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, mutual, "repeating a like is not reciprocation")

		mutual, err = db.RecordLike(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.True(t, mutual)
	})

	t.Run("date ideas", func(t *testing.T) {
		db := newDB(t)
		author := newUser(t, db, "author")

		first, err := db.CreateDateIdea(ctx, &models.DateIdea{
			AuthorID: author.ID, Title: "Stargazing", Description: "Hot cocoa",
			Category: models.CategoryOutdoorsAndAdventure,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)

		time.Sleep(2 * time.Millisecond)
		second, err := db.CreateDateIdea(ctx, &models.DateIdea{
			AuthorID: author.ID, Title: "Pottery", Description: "Wobbly bowls",
			Category: models.CategoryArtsAndCulture,
		})
		require.NoError(t, err)

		got, err := db.GetDateIdea(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Stargazing", got.Title)
		assert.Equal(t, models.CategoryOutdoorsAndAdventure, got.Category)

		list, err := db.ListDateIdeas(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(list), 2)
		assert.Equal(t, second.ID, list[0].ID, "newest first")

		_, err = db.GetDateIdea(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrDateIdeaNotFound)
	})

	t.Run("match lifecycle", func(t *testing.T) {
		db := newDB(t)
		fan := newUser(t, db, "fan")
		author := newUser(t, db, "author")
		idea, err := db.CreateDateIdea(ctx, &models.DateIdea{
			AuthorID: author.ID, Title: "Picnic", Description: "Blanket",
			Category: models.CategoryRelaxingAndCasual,
		})
		require.NoError(t, err)

		expiry := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Millisecond)
		nm := models.NewMatch{
			Participants:      [2]string{fan.ID, author.ID},
			InterestType:      models.InterestDate,
			InterestExpiresAt: &expiry,
			DateIdeaID:        idea.ID,
			DateAuthorID:      author.ID,
		}
		m, err := db.CreateMatch(ctx, nm)
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)

		_, err = db.CreateMatch(ctx, nm)
		assert.ErrorIs(t, err, ErrMatchAlreadyExists)

		found, err := db.FindDateInterest(ctx, fan.ID, idea.ID)
		require.NoError(t, err)
		assert.Equal(t, m.ID, found.ID)

		_, err = db.FindDateInterest(ctx, author.ID, idea.ID)
		assert.ErrorIs(t, err, ErrMatchNotFound, "authors are not interested in their own idea")

		for i, sender := range []string{fan.ID, author.ID, fan.ID} {
			err := db.AppendMessage(ctx, m.ID, models.Message{
				ID:        uuid.NewString(),
				SenderID:  sender,
				Text:      fmt.Sprintf("msg %d", i),
				Timestamp: time.Now().UTC(),
			})
			require.NoError(t, err)
		}

		got, err := db.GetMatch(ctx, m.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 3)
		assert.Equal(t, "msg 0", got.Messages[0].Text)
		assert.Equal(t, "msg 2", got.Messages[2].Text)
		assert.Equal(t, author.ID, got.DateAuthorID)
		require.NotNil(t, got.InterestExpiresAt)
		assert.True(t, expiry.Equal(*got.InterestExpiresAt))

		require.NoError(t, db.ClearExpiry(ctx, m.ID))
		require.NoError(t, db.ClearExpiry(ctx, m.ID), "clearing twice is a no-op")
		got, err = db.GetMatch(ctx, m.ID)
		require.NoError(t, err)
		assert.Nil(t, got.InterestExpiresAt)

		err = db.AppendMessage(ctx, uuid.NewString(), models.Message{ID: uuid.NewString(), SenderID: fan.ID, Text: "x", Timestamp: time.Now()})
		assert.ErrorIs(t, err, ErrMatchNotFound)
		assert.ErrorIs(t, db.ClearExpiry(ctx, uuid.NewString()), ErrMatchNotFound)
	})

	t.Run("remove hides match from both participants", func(t *testing.T) {
		db := newDB(t)
		fan := newUser(t, db, "fan")
		author := newUser(t, db, "author")
		idea, err := db.CreateDateIdea(ctx, &models.DateIdea{
			AuthorID: author.ID, Title: "Climbing", Description: "Bouldering gym",
			Category: models.CategoryActiveAndFitness,
		})
		require.NoError(t, err)

		expiry := time.Now().Add(time.Hour)
		m, err := db.CreateMatch(ctx, models.NewMatch{
			Participants:      [2]string{fan.ID, author.ID},
			InterestType:      models.InterestDate,
			InterestExpiresAt: &expiry,
			DateIdeaID:        idea.ID,
			DateAuthorID:      author.ID,
		})
		require.NoError(t, err)

		require.NoError(t, db.RemoveMatch(ctx, m.ID))
		assert.ErrorIs(t, db.RemoveMatch(ctx, m.ID), ErrMatchNotFound)

		for _, id := range []string{fan.ID, author.ID} {
			list, err := db.ListMatchesFor(ctx, id)
			require.NoError(t, err)
			assert.Empty(t, list)
		}
		_, err = db.GetMatch(ctx, m.ID)
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("remove keeps a match the author wrote in", func(t *testing.T) {
		db := newDB(t)
		fan := newUser(t, db, "fan")
		author := newUser(t, db, "author")
		idea, err := db.CreateDateIdea(ctx, &models.DateIdea{
			AuthorID: author.ID, Title: "Picnic", Description: "Park lunch",
			Category: models.CategoryRelaxingAndCasual,
		})
		require.NoError(t, err)

		expiry := time.Now().Add(time.Hour)
		m, err := db.CreateMatch(ctx, models.NewMatch{
			Participants:      [2]string{fan.ID, author.ID},
			InterestType:      models.InterestDate,
			InterestExpiresAt: &expiry,
			DateIdeaID:        idea.ID,
			DateAuthorID:      author.ID,
		})
		require.NoError(t, err)

		require.NoError(t, db.AppendMessage(ctx, m.ID, models.Message{
			ID: uuid.NewString(), MatchID: m.ID, SenderID: fan.ID, Text: "Hi!", Timestamp: time.Now(),
		}))
		require.NoError(t, db.AppendMessage(ctx, m.ID, models.Message{
			ID: uuid.NewString(), MatchID: m.ID, SenderID: author.ID, Text: "Yes! Friday?", Timestamp: time.Now(),
		}))

		assert.ErrorIs(t, db.RemoveMatch(ctx, m.ID), ErrMatchEngaged)

		got, err := db.GetMatch(ctx, m.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, "Yes! Friday?", got.Messages[1].Text)
	})

	t.Run("swipe matches", func(t *testing.T) {
		db := newDB(t)
		a := newUser(t, db, "a")
		b := newUser(t, db, "b")
		c := newUser(t, db, "c")

		first, err := db.CreateMatch(ctx, models.NewMatch{Participants: [2]string{a.ID, b.ID}, InterestType: models.InterestSwipe})
		require.NoError(t, err)
		assert.Nil(t, first.InterestExpiresAt)

		_, err = db.CreateMatch(ctx, models.NewMatch{Participants: [2]string{b.ID, a.ID}, InterestType: models.InterestSwipe})
		assert.ErrorIs(t, err, ErrMatchAlreadyExists, "pairs are unordered")

		found, err := db.FindSwipeMatch(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)

		_, err = db.FindSwipeMatch(ctx, a.ID, c.ID)
		assert.ErrorIs(t, err, ErrMatchNotFound)

		time.Sleep(2 * time.Millisecond)
		second, err := db.CreateMatch(ctx, models.NewMatch{Participants: [2]string{a.ID, c.ID}, InterestType: models.InterestSwipe})
		require.NoError(t, err)

		list, err := db.ListMatchesFor(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID, "newest first")
		assert.Equal(t, first.ID, list[1].ID)

		_, err = db.CreateMatch(ctx, models.NewMatch{Participants: [2]string{a.ID, a.ID}, InterestType: models.InterestSwipe})
		assert.ErrorIs(t, err, models.ErrInvalidMatch)
	})
}
