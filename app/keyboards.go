package app

import (
	"github.com/veisher/licensebot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Callback actions. Buttons carry the action as the telebot unique key;
// the payment button additionally carries the strategy ID as payload.
const (
	actionCheckPrice = "check_price"
	actionLicenses   = "manage_license"
	actionMainMenu   = "main_menu"
	actionPay        = "pay"
)

// Screen identifies which reply keyboard an outbound message carries.
type Screen int

const (
	ScreenMainMenu Screen = iota
	ScreenPriceLookupPrompt
	ScreenPriceResult
	ScreenLicenseList
	ScreenPaymentResult
)

// menuFor builds the inline keyboard for a screen, one button per row.
// strategyID is only consulted for ScreenPriceResult. Deterministic, no
// side effects.
func menuFor(screen Screen, strategyID string) *tele.ReplyMarkup {
	backRow := keyboard.InlineBtn{Text: btnMainMenu, Unique: actionMainMenu}

	switch screen {
	case ScreenMainMenu:
		return keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: btnCheckPrice, Unique: actionCheckPrice},
			{Text: btnLicenses, Unique: actionLicenses},
		})
	case ScreenPriceResult:
		return keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: btnPayNow, Unique: actionPay, Data: strategyID},
			backRow,
		})
	default:
		return keyboard.InlineButtons([]keyboard.InlineBtn{backRow})
	}
}
