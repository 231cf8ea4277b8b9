package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"guessthesong/internal/cache"
	"guessthesong/internal/clock"
	"guessthesong/internal/metrics"
	"guessthesong/internal/model"
	"guessthesong/internal/repository"
)

const maxMessageLen = 500

var errDuplicateGuess = errors.New("duplicate guess")

// GuessService scores guesses against the live round and carries room chat.
type GuessService struct {
	store       cache.StateStore
	messages    repository.MessageRepo
	leaderboard cache.LeaderboardCache
	broadcaster StateBroadcaster
	clock       clock.Clock
	metrics     *metrics.Metrics
	log         *zap.Logger
}

func NewGuessService(
	store cache.StateStore,
	messages repository.MessageRepo,
	leaderboard cache.LeaderboardCache,
	broadcaster StateBroadcaster,
	clk clock.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
) *GuessService {
	return &GuessService{
		store:       store,
		messages:    messages,
		leaderboard: leaderboard,
		broadcaster: broadcaster,
		clock:       clk,
		metrics:     m,
		log:         log.Named("guesses"),
	}
}

// SubmitGuess evaluates text against the live round. Only a correct guess is
// recorded on the round, at most one per user; any later submission from that
// user in the same round is a successful no-op reported as Duplicate. Wrong
// guesses are posted to the chat and may be retried.
func (s *GuessService) SubmitGuess(ctx context.Context, code string, user model.Identity, text string) (*model.GuessResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyGuess
	}

	var (
		result   model.GuessResult
		roomID   string
		newTotal float64
	)
	_, err := s.store.Update(ctx, code, func(st *model.RoomState) error {
		result = model.GuessResult{}
		roomID = st.Room.ID

		idx := st.PlayerIndex(user.ID)
		if idx < 0 {
			return ErrNotMember
		}
		round := st.Round
		if !st.IsPlaying || round == nil {
			return ErrNoActiveRound
		}
		result.RoundNumber = round.RoundNumber

		if prev, ok := round.GuessBy(user.ID); ok {
			result.Duplicate = true
			result.Correct = prev.IsCorrect
			result.Score = prev.Score
			result.Winner = round.WinnerID == user.ID
			return errDuplicateGuess
		}

		now := s.clock.Now()
		totalMs := int64(st.Settings.TimePerSong) * 1000
		elapsedMs := now.Sub(round.StartedAt).Milliseconds()
		if elapsedMs < 0 {
			elapsedMs = 0
		}
		if elapsedMs > totalMs {
			return ErrNoActiveRound
		}

		result.Accepted = true
		if !FuzzyMatch(text, round.Song.Title, DefaultMatchThreshold) {
			result.Close = IsCloseMatch(text, round.Song.Title)
			return errNoop
		}

		first := round.WinnerID == ""
		score := AwardedScore(elapsedMs, totalMs, first)
		if first {
			round.WinnerID = user.ID
		}
		round.Guesses = append(round.Guesses, model.Guess{
			UserID:    user.ID,
			Guess:     text,
			IsCorrect: true,
			Score:     score,
			Timestamp: now,
		})
		st.Players[idx].Score += score
		newTotal = st.Players[idx].Score

		result.Correct = true
		result.Winner = first
		result.Score = score
		return nil
	})

	switch {
	case errors.Is(err, errDuplicateGuess):
		s.metrics.Guesses.WithLabelValues("duplicate").Inc()
		return &result, nil
	case errors.Is(err, errNoop):
		s.metrics.Guesses.WithLabelValues("wrong").Inc()
		s.appendMessage(ctx, &model.Message{
			RoomID:      roomID,
			Content:     text,
			Type:        model.MessageGuess,
			DisplayName: user.DisplayName,
			AvatarURL:   user.AvatarURL,
			User:        user.ID,
		})
		s.broadcaster.Broadcast(ctx, code)
		return &result, nil
	case err != nil:
		return nil, err
	}

	s.metrics.Guesses.WithLabelValues("correct").Inc()
	if err := s.leaderboard.SetScore(ctx, code, user.ID, newTotal); err != nil {
		s.log.Warn("leaderboard update", zap.String("room", code), zap.Error(err))
	} else if rank, err := s.leaderboard.GetRank(ctx, code, user.ID); err == nil && rank > 0 {
		result.Rank = int(rank)
	}
	s.appendMessage(ctx, &model.Message{
		RoomID:  roomID,
		Content: user.DisplayName + " guessed the song!",
		Type:    model.MessageSystem,
	})
	s.log.Debug("correct guess",
		zap.String("room", code),
		zap.String("user", user.ID),
		zap.Int("round", result.RoundNumber),
		zap.Float64("score", result.Score))
	s.broadcaster.Broadcast(ctx, code)
	return &result, nil
}

// SendMessage posts a chat line from a member.
func (s *GuessService) SendMessage(ctx context.Context, code string, user model.Identity, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxMessageLen {
		return nil, ErrMessageTooLong
	}

	st, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !st.IsMember(user.ID) {
		return nil, ErrNotMember
	}

	msg := &model.Message{
		RoomID:      st.Room.ID,
		Content:     content,
		Type:        model.MessageChat,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		User:        user.ID,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(ctx, code)
	return msg, nil
}

func (s *GuessService) appendMessage(ctx context.Context, msg *model.Message) {
	msg.CreatedAt = s.clock.Now()
	if err := s.messages.Append(ctx, msg); err != nil {
		s.log.Warn("append message", zap.String("roomId", msg.RoomID), zap.Error(err))
	}
}
