package sources

import (
	"net/url"
	"strings"
)

// blockedDomains lists paywalled publisher hosts skipped before PDF
// download (spec §4.3: "16 known paywalled publisher domains").
var blockedDomains = []string{
	"www.sciencedirect.com",
	"sciencedirect.com",
	"onlinelibrary.wiley.com",
	"link.springer.com",
	"www.springer.com",
	"ieeexplore.ieee.org",
	"dl.acm.org",
	"www.nature.com",
	"www.tandfonline.com",
	"www.sage.com",
	"journals.sagepub.com",
	"www.cell.com",
	"academic.oup.com",
	"www.jstor.org",
	"www.elsevier.com",
	"www.emerald.com",
}

// IsBlockedPDFURL reports whether the given PDF URL's host is on the
// paywalled-publisher blocklist.
func IsBlockedPDFURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, b := range blockedDomains {
		if host == b {
			return true
		}
	}
	return false
}
