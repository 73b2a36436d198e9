package project

import (
	"encoding/xml"
	"fmt"
	"os"
)

// ServiceConfiguration is a parsed .cscfg file. Raw keeps the file verbatim
// because it is sent to the cloud as the deployment configuration.
type ServiceConfiguration struct {
	ServiceName string
	Roles       []Role
	Raw         []byte
}

// Role is one role of a service configuration
type Role struct {
	Name         string
	Instances    int
	Certificates []RoleCertificate
}

// RoleCertificate is a certificate a role expects to find in the cloud service
type RoleCertificate struct {
	Name                string
	Thumbprint          string
	ThumbprintAlgorithm string
}

type cscfgXML struct {
	ServiceName string `xml:"serviceName,attr"`
	Roles       []struct {
		Name      string `xml:"name,attr"`
		Instances struct {
			Count int `xml:"count,attr"`
		} `xml:"Instances"`
		Certificates []struct {
			Name                string `xml:"name,attr"`
			Thumbprint          string `xml:"thumbprint,attr"`
			ThumbprintAlgorithm string `xml:"thumbprintAlgorithm,attr"`
		} `xml:"Certificates>Certificate"`
	} `xml:"Role"`
}

// LoadServiceConfiguration reads and parses a .cscfg file
func LoadServiceConfiguration(path string) (*ServiceConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service configuration: %w", err)
	}
	return ParseServiceConfiguration(data)
}

// ParseServiceConfiguration decodes .cscfg content
func ParseServiceConfiguration(data []byte) (*ServiceConfiguration, error) {
	var doc cscfgXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse service configuration: %w", err)
	}

	cfg := &ServiceConfiguration{
		ServiceName: doc.ServiceName,
		Raw:         data,
	}
	for _, r := range doc.Roles {
		role := Role{Name: r.Name, Instances: r.Instances.Count}
		for _, c := range r.Certificates {
			role.Certificates = append(role.Certificates, RoleCertificate{
				Name:                c.Name,
				Thumbprint:          c.Thumbprint,
				ThumbprintAlgorithm: c.ThumbprintAlgorithm,
			})
		}
		cfg.Roles = append(cfg.Roles, role)
	}
	return cfg, nil
}

// RoleNames lists the configured roles in file order
func (c *ServiceConfiguration) RoleNames() []string {
	names := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		names = append(names, r.Name)
	}
	return names
}
