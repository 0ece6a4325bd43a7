package detail

import (
	"errors"
	"net/url"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/entity"
)

const (
	trackingPrefix     = "utm_"
	defaultPhoneRegion = "IN"
	mapLinkLabel       = "View on Google Maps"
)

var idnaProfile = idna.Display

func (a *Aggregator) contactRows(p entity.Place) []dto.ContactRow {
	rows := make([]dto.ContactRow, 0, 4)

	address := strings.TrimSpace(p.FormattedAddress)
	if address == "" {
		address = strings.TrimSpace(p.Address)
	}
	if address != "" {
		rows = append(rows, dto.ContactRow{Kind: "address", Display: address})
	}

	if phone := strings.TrimSpace(p.Phone); phone != "" {
		rows = append(rows, dto.ContactRow{Kind: "phone", Display: phone, Link: telLink(phone, a.phoneRegion)})
	}

	if website := strings.TrimSpace(p.Website); website != "" {
		row := dto.ContactRow{Kind: "website", Display: website}
		if u, err := sanitizeURL(website); err == nil {
			stripTracking(u)
			row.Link = u.String()
			row.Display = displayHost(u)
		}
		rows = append(rows, row)
	}

	if mapURL := strings.TrimSpace(p.MapURL); mapURL != "" {
		rows = append(rows, dto.ContactRow{Kind: "map", Display: mapLinkLabel, Link: mapURL})
	}

	if len(rows) == 0 {
		return nil
	}
	return rows
}

// telLink returns an RFC 3966 URI for valid numbers and a digits-only tel: link otherwise.
func telLink(raw, region string) string {
	if number, ok := parsePhone(raw, region); ok {
		return phonenumbers.Format(number, phonenumbers.RFC3966)
	}
	return "tel:" + strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, raw)
}

func parsePhone(raw, region string) (*phonenumbers.PhoneNumber, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if region == "" {
		region = defaultPhoneRegion
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return nil, false
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return nil, false
	}
	return number, true
}

func sanitizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, errors.New("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("unsupported scheme")
	}
	return u, nil
}

func stripTracking(u *url.URL) {
	if u == nil {
		return
	}
	query := u.Query()
	changed := false
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), trackingPrefix) {
			query.Del(key)
			changed = true
		}
	}
	if changed {
		u.RawQuery = query.Encode()
	}
}

// displayHost renders the host in Unicode without the www. prefix.
func displayHost(u *url.URL) string {
	host := u.Hostname()
	if unicode, err := idnaProfile.ToUnicode(host); err == nil {
		host = unicode
	}
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
