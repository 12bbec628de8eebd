package notification

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Alijeyrad/mindcare_backend/internal/events"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	"github.com/Alijeyrad/mindcare_backend/pkg/email"
	"github.com/Alijeyrad/mindcare_backend/pkg/sms"
	"github.com/Alijeyrad/mindcare_backend/pkg/util/phone"
)

// StartTimeLayout formats session start times in messages.
const StartTimeLayout = "Mon 2 Jan 2006 15:04 MST"

type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, m email.Message) error
}

type Texter interface {
	IsEnabled() bool
	SendSessionUpdate(ctx context.Context, phoneNumber string, u sms.SessionUpdate) error
}

type DeliveryConfig struct {
	AppName string
	BaseURL string
	// Region is the default country for phone numbers without a prefix.
	Region string
}

// Delivery pushes session updates to the user's e-mail and phone.
type Delivery struct {
	mail Mailer
	sms  Texter
	cfg  DeliveryConfig
}

func NewDelivery(mail Mailer, texter Texter, cfg DeliveryConfig) *Delivery {
	if cfg.AppName == "" {
		cfg.AppName = "MindCare"
	}
	if cfg.Region == "" {
		cfg.Region = "IR"
	}
	return &Delivery{mail: mail, sms: texter, cfg: cfg}
}

// SessionUpdate sends both channels concurrently. A channel that is
// disabled or that the user cannot be reached on is skipped; ErrNoChannel
// is returned when neither was attempted.
func (d *Delivery) SessionUpdate(ctx context.Context, u *store.User, sess *store.Session, e events.Event) error {
	start := sess.StartTime.Format(StartTimeLayout)
	attempted := 0

	g, gctx := errgroup.WithContext(ctx)

	if d.mail != nil && d.mail.Enabled() && u.Email != "" {
		attempted++
		g.Go(func() error {
			msg, err := email.BuildSessionEmail(u.Email, email.SessionEmailData{
				RecipientName: u.FullName(),
				Event:         string(e),
				StartTime:     start,
				SessionURL:    fmt.Sprintf("%s/sessions/%s", d.cfg.BaseURL, sess.ID),
				AppName:       d.cfg.AppName,
			})
			if err != nil {
				return err
			}
			if err := d.mail.Send(gctx, msg); err != nil {
				return fmt.Errorf("email: %w", err)
			}
			return nil
		})
	}

	if number, ok := d.mobile(ctx, u); ok {
		attempted++
		g.Go(func() error {
			err := d.sms.SendSessionUpdate(gctx, number, sms.SessionUpdate{
				RecipientName: u.FullName(),
				Event:         string(e),
				StartTime:     start,
			})
			if err != nil {
				return fmt.Errorf("sms: %w", err)
			}
			return nil
		})
	}

	if attempted == 0 {
		return ErrNoChannel
	}
	return g.Wait()
}

func (d *Delivery) mobile(ctx context.Context, u *store.User) (string, bool) {
	if d.sms == nil || !d.sms.IsEnabled() || u.Phone == nil || *u.Phone == "" {
		return "", false
	}
	number, err := phone.Normalize(*u.Phone, d.cfg.Region)
	if err != nil {
		slog.DebugContext(ctx, "notification: skipping sms, bad phone number", "user_id", u.ID, "err", err)
		return "", false
	}
	if !phone.IsMobile(number) {
		return "", false
	}
	return number, true
}
