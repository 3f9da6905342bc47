package bot

// Callback keys. Payloads are built with callbacks.Join.
const (
	cbMenu     = "menu"
	cbHelp     = "help"
	cbChannels = "channels"
	cbOffer    = "offer"

	cbConnect    = "ch_connect"
	cbMyChannels = "ch_list"
	cbChannel    = "ch_open"
	cbModerators = "ch_mods"
	cbPromo      = "ch_promo"
	cbDelete     = "ch_delete"
	cbDeleteOK   = "ch_delete_ok"
	cbModAdd     = "mod_add"
	cbModRemove  = "mod_remove"
	cbSetupSelf  = "setup_self"
	cbSetupOther = "setup_other"
	cbSetupSkip  = "setup_skip"
	cbOfferMode  = "offer_mode"
	cbAccept     = "sub_accept"
	cbReject     = "sub_reject"
	cbReply      = "sub_reply"
)

// startPostPrefix is the /start payload of channel deep links.
const startPostPrefix = "post_"
