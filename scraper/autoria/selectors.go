package autoria

// detailMarker is the path token every listing detail URL carries.
const detailMarker = "auto_"

// linkStrategy is one independent query for detail links on a listing page.
type linkStrategy struct {
	name     string
	selector string
}

// linkStrategies are applied in order and their matches unioned. The site has
// changed its listing markup several times; each entry covers one layout.
var linkStrategies = []linkStrategy{
	{name: "ticket-link", selector: "a.m-link-ticket"},
	{name: "address", selector: "a.address"},
	{name: "ticket-title", selector: "div.ticket-title a"},
	{name: "head-ticket", selector: "div.head-ticket a"},
	{name: "content-bar", selector: "div.content-bar a[href*='auto_']"},
}

// Detail page selectors.
const (
	titleSelector         = "h1.head"
	priceSelector         = ".price_value strong"
	labelSelector         = "span.label"
	argumentSelector      = "span.argument"
	odometerLabel         = "Пробіг від продавця"
	sellerSelector        = ".seller_info_name"
	photoSelector         = "div.photo-620x465 img"
	plateSelector         = "span.state-num"
	vinToken              = "vin"
	phoneTokensSelector   = "[data-hash][data-expires]"
	revealPhoneSelector   = ".phone_show_link"
	revealedPhoneSelector = ".popup-successful-call-desk"
)
