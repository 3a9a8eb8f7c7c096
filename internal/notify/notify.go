package notify

import (
	"context"
	"fmt"
	"time"

	"nylour/internal/domain"
	"nylour/internal/metrics"
	"nylour/internal/models"
	"nylour/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier delivers queue progress messages over the bot API.
// Sends retry with backoff; a customer without a linked chat is skipped
// silently.
type TelegramNotifier struct {
	bot    domain.TelegramSender
	retry  worker.RetryPolicy
	logger *zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot: bot,
		retry: worker.RetryPolicy{
			MaxRetries:    3,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2,
		},
		logger: logger,
	}
}

func (n *TelegramNotifier) NotifyNextInLine(ctx context.Context, customer *models.Customer, salon *models.Salon) error {
	if customer.TelegramChatID == 0 {
		return nil
	}

	text := fmt.Sprintf("You're next at %s! Please come to the front desk.", salon.Name)
	if err := n.send(ctx, customer.TelegramChatID, text); err != nil {
		return err
	}
	metrics.IncNotification("next_in_line")
	return nil
}

func (n *TelegramNotifier) NotifyAlmostReady(ctx context.Context, customer *models.Customer, salon *models.Salon, minutesLeft int) error {
	if customer.TelegramChatID == 0 {
		return nil
	}

	text := fmt.Sprintf("Almost ready! About %d min left at %s.", minutesLeft, salon.Name)
	if err := n.send(ctx, customer.TelegramChatID, text); err != nil {
		return err
	}
	metrics.IncNotification("almost_ready")
	return nil
}

func (n *TelegramNotifier) NotifyBookingCancelled(ctx context.Context, customer *models.Customer, booking *models.Booking) error {
	if customer.TelegramChatID == 0 {
		return nil
	}

	text := fmt.Sprintf("Your booking for %s on %s was cancelled.",
		booking.ServiceName, booking.Date.Format("02.01.2006"))
	if booking.CancellationFee > 0 {
		text += fmt.Sprintf(" Cancellation fee: %.2f.", booking.CancellationFee)
	}
	if err := n.send(ctx, customer.TelegramChatID, text); err != nil {
		return err
	}
	metrics.IncNotification("booking_cancelled")
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)

	var lastErr error
	for attempt := 1; attempt <= n.retry.MaxRetries; attempt++ {
		if _, lastErr = n.bot.Send(msg); lastErr == nil {
			return nil
		}

		n.logger.Warn().Err(lastErr).Int64("chat_id", chatID).Int("attempt", attempt).Msg("telegram send failed")
		if attempt == n.retry.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.retry.NextDelay(attempt)):
		}
	}
	return fmt.Errorf("failed to send telegram message: %w", lastErr)
}
