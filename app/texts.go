package app

// User-facing texts. The bot replies in plain text; strategy IDs and
// prices are interpolated verbatim.
const (
	textWelcome = "Welcome to the EA strategy license bot!\nChoose an option:"
	textMenu    = "Choose an option:"

	textPricePrompt      = "Enter the EA strategy number (for example: NO-75):"
	textFormatCorrection = "Please enter a valid strategy number (for example: NO-75)"
	textPriceFailed      = "Failed to fetch the price, please try again later."

	textNoLicenses    = "You have not purchased any licenses yet."
	textLicenseHeader = "Your licenses:\n\n"
	textLicenseFailed = "Failed to fetch license information, please try again later."

	textPaySuccess = "Payment successful!"
	textPayFailed  = "Payment failed, please try again later."

	textGenericError      = "An error occurred, please try again later."
	textUnsupportedAction = "Unsupported action"

	btnCheckPrice = "💰 Check EA Price"
	btnLicenses   = "🔑 License Management"
	btnPayNow     = "Pay Now"
	btnMainMenu   = "Back to Main Menu"
)

const licenseSeparator = "---------------"
