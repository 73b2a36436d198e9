package project

import (
	"crypto/tls"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/cuemby/cspublish/pkg/security"
	"github.com/cuemby/cspublish/pkg/types"
)

// DefaultManagementURL is used when a schema 1.0 profile omits the Url attribute
const DefaultManagementURL = "https://management.core.windows.net/"

// PublishSettings is a parsed .publishsettings file
type PublishSettings struct {
	subscriptions []Subscription
}

// Subscription holds what is needed to call the management API for one subscription
type Subscription struct {
	ID                    string
	Name                  string
	ServiceManagementURL  string
	ManagementCertificate []byte
}

type publishDataXML struct {
	Profiles []struct {
		SchemaVersion         string `xml:"SchemaVersion,attr"`
		PublishMethod         string `xml:"PublishMethod,attr"`
		URL                   string `xml:"Url,attr"`
		ManagementCertificate string `xml:"ManagementCertificate,attr"`
		Subscriptions         []struct {
			ID                    string `xml:"Id,attr"`
			Name                  string `xml:"Name,attr"`
			ServiceManagementURL  string `xml:"ServiceManagementUrl,attr"`
			ManagementCertificate string `xml:"ManagementCertificate,attr"`
		} `xml:"Subscription"`
	} `xml:"PublishProfile"`
}

// LoadPublishSettings reads a publish settings file in schema 1.0 or 2.0.
// Any problem with the file is reported as an AuthenticationError.
func LoadPublishSettings(path string) (*PublishSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.AuthenticationError{Err: fmt.Errorf("failed to read publish settings: %w", err)}
	}
	return ParsePublishSettings(data)
}

// ParsePublishSettings decodes publish settings content
func ParsePublishSettings(data []byte) (*PublishSettings, error) {
	var doc publishDataXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &types.AuthenticationError{Err: fmt.Errorf("failed to parse publish settings: %w", err)}
	}

	ps := &PublishSettings{}
	for _, p := range doc.Profiles {
		for _, s := range p.Subscriptions {
			// Schema 2.0 keeps the URL and certificate per subscription,
			// schema 1.0 on the profile
			url := firstNonEmpty(s.ServiceManagementURL, p.URL, DefaultManagementURL)
			certB64 := firstNonEmpty(s.ManagementCertificate, p.ManagementCertificate)
			if certB64 == "" {
				return nil, &types.AuthenticationError{Err: fmt.Errorf("subscription %s has no management certificate", s.ID)}
			}

			cert, err := base64.StdEncoding.DecodeString(strings.TrimSpace(certB64))
			if err != nil {
				return nil, &types.AuthenticationError{Err: fmt.Errorf("failed to decode management certificate of subscription %s: %w", s.ID, err)}
			}

			ps.subscriptions = append(ps.subscriptions, Subscription{
				ID:                    strings.TrimSpace(s.ID),
				Name:                  s.Name,
				ServiceManagementURL:  url,
				ManagementCertificate: cert,
			})
		}
	}

	if len(ps.subscriptions) == 0 {
		return nil, &types.AuthenticationError{Err: fmt.Errorf("publish settings contain no subscription")}
	}
	return ps, nil
}

// Subscriptions returns every subscription in file order
func (p *PublishSettings) Subscriptions() []Subscription {
	return p.subscriptions
}

// DefaultSubscription is the first subscription in the file
func (p *PublishSettings) DefaultSubscription() Subscription {
	return p.subscriptions[0]
}

// Subscription looks a subscription up by id. An empty id selects the default.
func (p *PublishSettings) Subscription(id string) (Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return p.DefaultSubscription(), nil
	}
	for _, s := range p.subscriptions {
		if strings.EqualFold(s.ID, id) {
			return s, nil
		}
	}
	return Subscription{}, &types.AuthenticationError{Err: fmt.Errorf("subscription %s not found in publish settings", id)}
}

// TLSCertificate decodes the management certificate. Publish settings
// certificates carry no password.
func (s Subscription) TLSCertificate() (*tls.Certificate, error) {
	cert, err := security.LoadPKCS12(s.ManagementCertificate, "")
	if err != nil {
		return nil, &types.AuthenticationError{Err: fmt.Errorf("unusable management certificate for subscription %s: %w", s.ID, err)}
	}
	return cert, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
