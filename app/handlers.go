package app

import (
	"fmt"
	"strings"

	"github.com/veisher/licensebot/core/buildinfo"
	"github.com/veisher/licensebot/core/logger"
	"github.com/veisher/licensebot/core/telegram/callbacks"
	tghelpers "github.com/veisher/licensebot/core/telegram/helpers"
	"github.com/veisher/licensebot/services/licensing"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// handleStart opens the main menu. Bound to the /start command.
func (a *App) handleStart(c tele.Context) error {
	user := c.Sender()
	ctx := tghelpers.WithHandler(c, "start")
	logger.Info(ctx, "bot", "menu.open", userAttrs(user)...)

	a.sessions.ClearState(user.ID)
	return tghelpers.SendText(c, textWelcome, &tele.SendOptions{
		ReplyMarkup: menuFor(ScreenMainMenu, ""),
	})
}

// handlePricePrompt asks the user for a strategy number and marks the
// session as awaiting that input. Bound to the check_price callback.
func (a *App) handlePricePrompt(c tele.Context) error {
	user := c.Sender()
	ctx := tghelpers.WithHandler(c, "price_prompt")
	logger.Info(ctx, "bot", "price.prompt", userAttrs(user)...)

	a.sessions.SetState(user.ID, awaitingStrategyInput)
	return tghelpers.SendText(c, textPricePrompt, &tele.SendOptions{
		ReplyMarkup: menuFor(ScreenPriceLookupPrompt, ""),
	})
}

// handleStrategyInput treats free text as a strategy code lookup. Every
// non-command message routes here, with or without a prior prompt.
func (a *App) handleStrategyInput(c tele.Context) error {
	user := c.Sender()
	ctx := tghelpers.WithHandler(c, "strategy_lookup")
	strategyID := strings.TrimSpace(c.Text())
	logger.Info(ctx, "bot", "strategy.input",
		append(userAttrs(user), slog.String("strategy_id", logger.SanitizeLimit(strategyID, 64)))...)

	if err := licensing.ValidateStrategyID(strategyID); err != nil {
		logger.Warn(ctx, "bot", "strategy.invalid",
			append(userAttrs(user), slog.String("strategy_id", logger.SanitizeLimit(strategyID, 64)))...)
		return tghelpers.SendText(c, textFormatCorrection)
	}

	quote, err := a.licensing.FetchPrice(ctx, strategyID)
	if err != nil {
		// the client already logged the failure kind
		return tghelpers.SendText(c, textPriceFailed)
	}

	a.sessions.ClearState(user.ID)
	text := fmt.Sprintf("Strategy: %s\nPrice: $%s", quote.StrategyID, quote.Price)
	return tghelpers.SendText(c, text, &tele.SendOptions{
		ReplyMarkup: menuFor(ScreenPriceResult, quote.StrategyID),
	})
}

// handleLicenses renders the purchased license list. Bound to the
// manage_license callback. Failures and the empty list both resolve to a
// text reply with the back-to-menu keyboard.
func (a *App) handleLicenses(c tele.Context) error {
	user := c.Sender()
	ctx := tghelpers.WithHandler(c, "license_list")
	logger.Info(ctx, "bot", "license.open", userAttrs(user)...)

	var text string
	licenses, err := a.licensing.FetchLicenses(ctx)
	switch {
	case err != nil:
		text = textLicenseFailed
	case len(licenses) == 0:
		text = textNoLicenses
	default:
		text = renderLicenses(licenses)
	}

	return tghelpers.SendText(c, text, &tele.SendOptions{
		ReplyMarkup: menuFor(ScreenLicenseList, ""),
	})
}

// handleMainMenu returns to the main menu by editing the current message
// in place. The only handler that edits instead of sending.
func (a *App) handleMainMenu(c tele.Context) error {
	user := c.Sender()
	ctx := tghelpers.WithHandler(c, "main_menu")
	logger.Info(ctx, "bot", "menu.return", userAttrs(user)...)

	a.sessions.ClearState(user.ID)
	if err := c.Edit(textMenu, menuFor(ScreenMainMenu, "")); err != nil {
		logger.Error(ctx, "bot", "menu.edit",
			append(userAttrs(user), slog.String("err", logger.SanitizeLimit(err.Error(), 256)))...)
		return err
	}
	return nil
}

// handlePayment settles the strategy carried in the callback payload.
// Bound to the pay callback.
func (a *App) handlePayment(c tele.Context) error {
	user := c.Sender()
	ctx := tghelpers.WithHandler(c, "payment")
	strategyID := callbacks.CallbackPayload(c)
	logger.Info(ctx, "bot", "payment.start",
		append(userAttrs(user), slog.String("strategy_id", logger.SanitizeLimit(strategyID, 64)))...)

	markup := menuFor(ScreenPaymentResult, "")
	if strategyID == "" {
		logger.Warn(ctx, "bot", "payment.no_payload", userAttrs(user)...)
		return tghelpers.SendText(c, textPayFailed, &tele.SendOptions{ReplyMarkup: markup})
	}

	if err := a.licensing.SubmitPayment(ctx, strategyID); err != nil {
		return tghelpers.SendText(c, textPayFailed, &tele.SendOptions{ReplyMarkup: markup})
	}
	return tghelpers.SendText(c, textPaySuccess, &tele.SendOptions{ReplyMarkup: markup})
}

// handleStats reports runtime counters. Admin-only.
func (a *App) handleStats(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "stats")
	logger.Info(ctx, "bot", "stats.open", userAttrs(c.Sender())...)

	var sendFailures uint64
	if a.dispatcher != nil {
		sendFailures = a.dispatcher.ErrorCount()
	}
	text := fmt.Sprintf(
		"Version: %s (%s)\nUptime: %s\nSessions: %d\nSend failures: %d",
		buildinfo.Version, buildinfo.Commit,
		logger.RoundMS(a.uptime()), a.sessions.Count(), sendFailures,
	)
	return tghelpers.SendText(c, text)
}

// notifyFailure is the panic fallback: the user gets the generic error
// text instead of silence.
func (a *App) notifyFailure(c tele.Context) error {
	return tghelpers.SendText(c, textGenericError)
}

// handleCallbackMiss answers button presses that match no registered
// action. The miss itself is logged as a warning.
func (a *App) handleCallbackMiss(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	logger.Warn(ctx, "bot", "callback.miss",
		append(userAttrs(c.Sender()),
			slog.String("cb_key", logger.SanitizeLimit(callbacks.CallbackKey(c), 128)))...)
	return c.Respond(&tele.CallbackResponse{Text: textUnsupportedAction})
}

func renderLicenses(licenses []licensing.License) string {
	var b strings.Builder
	b.WriteString(textLicenseHeader)
	for _, lic := range licenses {
		fmt.Fprintf(&b, "Strategy: %s\nActivation code: %s\n%s\n", lic.StrategyID, lic.ActivationCode, licenseSeparator)
	}
	return b.String()
}

func userAttrs(u *tele.User) []slog.Attr {
	if u == nil {
		return nil
	}
	attrs := []slog.Attr{slog.Int64("user_id", u.ID)}
	if u.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
	}
	return attrs
}
