package project

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuemby/cspublish/pkg/types"
)

// PackageDescriptor is the read-only view of a project's package.xml
type PackageDescriptor struct {
	packageType types.PackageType
	appName     string
}

type packageXML struct {
	Targets []struct {
		Name     string `xml:"name,attr"`
		Packages []struct {
			PackageType string `xml:"packagetype,attr"`
			Roles       []struct {
				Name       string `xml:"name,attr"`
				Components []struct {
					ImportAs string `xml:"importas,attr"`
					Type     string `xml:"type,attr"`
				} `xml:"component"`
			} `xml:"workerrole"`
		} `xml:"parallel>windowsazurepackage"`
	} `xml:"target"`
}

// Component type of a deployed web application
const componentTypeServerApp = "server.app"

// LoadPackageDescriptor reads <projectDir>/package.xml
func LoadPackageDescriptor(projectDir string) (*PackageDescriptor, error) {
	path := filepath.Join(projectDir, types.PackageDescriptorFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read package descriptor: %w", err)
	}
	return ParsePackageDescriptor(data)
}

// ParsePackageDescriptor decodes package.xml content. The first
// windowsazurepackage element of any target is authoritative.
func ParsePackageDescriptor(data []byte) (*PackageDescriptor, error) {
	var doc packageXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse package descriptor: %w", err)
	}

	for _, target := range doc.Targets {
		if len(target.Packages) == 0 {
			continue
		}
		pkg := target.Packages[0]

		d := &PackageDescriptor{packageType: types.PackageTypeCloud}
		if strings.EqualFold(strings.TrimSpace(pkg.PackageType), string(types.PackageTypeLocal)) {
			d.packageType = types.PackageTypeLocal
		}

	roles:
		for _, role := range pkg.Roles {
			for _, c := range role.Components {
				if c.Type == componentTypeServerApp && c.ImportAs != "" {
					d.appName = strings.TrimSuffix(c.ImportAs, filepath.Ext(c.ImportAs))
					break roles
				}
			}
		}
		return d, nil
	}

	return nil, fmt.Errorf("package descriptor has no windowsazurepackage element")
}

// PackageType returns local or cloud. A missing attribute means cloud.
func (d *PackageDescriptor) PackageType() types.PackageType {
	return d.packageType
}

// FirstApplicationName returns the first web application deployed by any
// role, without its archive extension, or "" when there is none
func (d *PackageDescriptor) FirstApplicationName() string {
	return d.appName
}
