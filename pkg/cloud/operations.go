package cloud

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/types"
)

type locationsXML struct {
	Locations []struct {
		Name        string `xml:"Name"`
		DisplayName string `xml:"DisplayName"`
	} `xml:"Location"`
}

type roleInstanceXML struct {
	RoleName       string `xml:"RoleName"`
	InstanceName   string `xml:"InstanceName"`
	InstanceStatus string `xml:"InstanceStatus"`
}

type deploymentXML struct {
	Name          string            `xml:"Name"`
	Slot          string            `xml:"DeploymentSlot"`
	Status        string            `xml:"Status"`
	Label         string            `xml:"Label"`
	URL           string            `xml:"Url"`
	RoleInstances []roleInstanceXML `xml:"RoleInstanceList>RoleInstance"`
}

type hostedServiceXML struct {
	URL         string          `xml:"Url"`
	ServiceName string          `xml:"ServiceName"`
	Location    string          `xml:"HostedServiceProperties>Location"`
	Deployments []deploymentXML `xml:"Deployments>Deployment"`
}

type createHostedServiceXML struct {
	XMLName     xml.Name `xml:"http://schemas.microsoft.com/windowsazure CreateHostedService"`
	ServiceName string   `xml:"ServiceName"`
	Label       string   `xml:"Label"`
	Location    string   `xml:"Location"`
}

type storageServicesXML struct {
	Services []struct {
		ServiceName string `xml:"ServiceName"`
	} `xml:"StorageService"`
}

type storageServiceXML struct {
	ServiceName string   `xml:"ServiceName"`
	Location    string   `xml:"StorageServiceProperties>Location"`
	Status      string   `xml:"StorageServiceProperties>Status"`
	Endpoints   []string `xml:"StorageServiceProperties>Endpoints>Endpoint"`
}

type storageKeysXML struct {
	Primary   string `xml:"StorageServiceKeys>Primary"`
	Secondary string `xml:"StorageServiceKeys>Secondary"`
}

type createStorageServiceXML struct {
	XMLName     xml.Name `xml:"http://schemas.microsoft.com/windowsazure CreateStorageServiceInput"`
	ServiceName string   `xml:"ServiceName"`
	Label       string   `xml:"Label"`
	Location    string   `xml:"Location"`
}

type certificatesXML struct {
	Certificates []struct {
		URL                 string `xml:"CertificateUrl"`
		Thumbprint          string `xml:"Thumbprint"`
		ThumbprintAlgorithm string `xml:"ThumbprintAlgorithm"`
	} `xml:"Certificate"`
}

type certificateFileXML struct {
	XMLName           xml.Name `xml:"http://schemas.microsoft.com/windowsazure CertificateFile"`
	Data              string   `xml:"Data"`
	CertificateFormat string   `xml:"CertificateFormat"`
	Password          string   `xml:"Password"`
}

type createDeploymentXML struct {
	XMLName         xml.Name `xml:"http://schemas.microsoft.com/windowsazure CreateDeployment"`
	Name            string   `xml:"Name"`
	PackageURL      string   `xml:"PackageUrl"`
	Label           string   `xml:"Label"`
	Configuration   string   `xml:"Configuration"`
	StartDeployment bool     `xml:"StartDeployment"`
}

type operationXML struct {
	ID             string `xml:"ID"`
	Status         string `xml:"Status"`
	HTTPStatusCode int    `xml:"HttpStatusCode"`
	Error          *struct {
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
}

func encodeLabel(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// Labels come back base64 encoded; fall back to the raw value otherwise
func decodeLabel(s string) string {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(data)
}

func (d deploymentXML) toDeployment() *types.Deployment {
	out := &types.Deployment{
		Name:   d.Name,
		Slot:   types.DeploymentSlot(d.Slot),
		Status: d.Status,
		URL:    d.URL,
		Label:  decodeLabel(d.Label),
	}
	if slot, err := types.ParseSlot(d.Slot); err == nil {
		out.Slot = slot
	}
	for _, ri := range d.RoleInstances {
		out.RoleInstances = append(out.RoleInstances, types.RoleInstance{
			RoleName:       ri.RoleName,
			InstanceName:   ri.InstanceName,
			InstanceStatus: types.InstanceStatus(ri.InstanceStatus),
		})
	}
	return out
}

// ListLocations lists the regions available to the subscription
func (c *ServiceManagementClient) ListLocations(ctx context.Context) ([]types.Location, error) {
	var out locationsXML
	if _, err := c.do(ctx, "ListLocations", "GET", "/locations", nil, &out); err != nil {
		return nil, err
	}

	locations := make([]types.Location, 0, len(out.Locations))
	for _, l := range out.Locations {
		locations = append(locations, types.Location{Name: l.Name, DisplayName: l.DisplayName})
	}
	return locations, nil
}

// GetCloudService returns the hosted service with its deployments
func (c *ServiceManagementClient) GetCloudService(ctx context.Context, name string) (*types.CloudService, error) {
	var out hostedServiceXML
	path := "/services/hostedservices/" + url.PathEscape(name) + "?embed-detail=true"
	if _, err := c.do(ctx, "GetCloudService", "GET", path, nil, &out); err != nil {
		return nil, err
	}

	svc := &types.CloudService{
		Name:     out.ServiceName,
		URL:      out.URL,
		Location: out.Location,
	}
	for _, d := range out.Deployments {
		svc.Deployments = append(svc.Deployments, *d.toDeployment())
	}
	return svc, nil
}

func (c *ServiceManagementClient) CreateCloudServiceIfNotExists(ctx context.Context, name, location string) (bool, error) {
	_, err := c.GetCloudService(ctx, name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return false, err
	}
	if location == "" {
		return false, &types.ValidationError{Field: "region", Reason: fmt.Sprintf("is required to create cloud service %s", name)}
	}

	in := &createHostedServiceXML{ServiceName: name, Label: encodeLabel(name), Location: location}
	if _, err := c.do(ctx, "CreateCloudService", "POST", "/services/hostedservices", in, nil); err != nil {
		return false, err
	}
	logger := log.WithComponent("cloud")
	logger.Info().Str("cloud_service", name).Str("location", location).Msg("Cloud service created")
	return true, nil
}

func (c *ServiceManagementClient) ListStorageAccountNames(ctx context.Context) ([]string, error) {
	var out storageServicesXML
	if _, err := c.do(ctx, "ListStorageAccounts", "GET", "/services/storageservices", nil, &out); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(out.Services))
	for _, s := range out.Services {
		names = append(names, s.ServiceName)
	}
	return names, nil
}

func (c *ServiceManagementClient) GetStorageAccount(ctx context.Context, name string) (*types.StorageAccount, error) {
	base := "/services/storageservices/" + url.PathEscape(name)

	var props storageServiceXML
	if _, err := c.do(ctx, "GetStorageAccount", "GET", base, nil, &props); err != nil {
		return nil, err
	}
	var keys storageKeysXML
	if _, err := c.do(ctx, "GetStorageAccountKeys", "GET", base+"/keys", nil, &keys); err != nil {
		return nil, err
	}

	account := &types.StorageAccount{
		Name:         props.ServiceName,
		Location:     props.Location,
		Status:       props.Status,
		PrimaryKey:   keys.Primary,
		SecondaryKey: keys.Secondary,
	}
	for _, e := range props.Endpoints {
		if strings.Contains(e, ".blob.") {
			account.BlobEndpoint = e
			break
		}
	}
	return account, nil
}

func (c *ServiceManagementClient) CreateStorageAccountIfNotExists(ctx context.Context, name, location string) (string, error) {
	var props storageServiceXML
	_, err := c.do(ctx, "GetStorageAccount", "GET", "/services/storageservices/"+url.PathEscape(name), nil, &props)
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return "", err
	}
	if location == "" {
		return "", &types.ValidationError{Field: "region", Reason: fmt.Sprintf("is required to create storage account %s", name)}
	}

	in := &createStorageServiceXML{ServiceName: name, Label: encodeLabel(name), Location: location}
	return c.do(ctx, "CreateStorageAccount", "POST", "/services/storageservices", in, nil)
}

func (c *ServiceManagementClient) ListCertificates(ctx context.Context, service string) ([]types.Certificate, error) {
	var out certificatesXML
	path := "/services/hostedservices/" + url.PathEscape(service) + "/certificates"
	if _, err := c.do(ctx, "ListCertificates", "GET", path, nil, &out); err != nil {
		return nil, err
	}

	certs := make([]types.Certificate, 0, len(out.Certificates))
	for _, cert := range out.Certificates {
		certs = append(certs, types.Certificate{
			Thumbprint:          cert.Thumbprint,
			ThumbprintAlgorithm: cert.ThumbprintAlgorithm,
			URL:                 cert.URL,
		})
	}
	return certs, nil
}

func (c *ServiceManagementClient) UploadCertificate(ctx context.Context, service string, pfx []byte, password string) (string, error) {
	in := &certificateFileXML{
		Data:              base64.StdEncoding.EncodeToString(pfx),
		CertificateFormat: "pfx",
		Password:          password,
	}
	path := "/services/hostedservices/" + url.PathEscape(service) + "/certificates"
	return c.do(ctx, "UploadCertificate", "POST", path, in, nil)
}

func (c *ServiceManagementClient) CreateDeployment(ctx context.Context, service string, slot types.DeploymentSlot, params types.CreateDeploymentParams) (string, error) {
	in := &createDeploymentXML{
		Name:            params.Name,
		PackageURL:      params.PackageURL,
		Label:           encodeLabel(params.Label),
		Configuration:   base64.StdEncoding.EncodeToString(params.Configuration),
		StartDeployment: params.StartDeployment,
	}
	path := "/services/hostedservices/" + url.PathEscape(service) + "/deploymentslots/" + strings.ToLower(string(slot))
	return c.do(ctx, "CreateDeployment", "POST", path, in, nil)
}

// DeleteDeployment deletes a deployment together with its disks and media
func (c *ServiceManagementClient) DeleteDeployment(ctx context.Context, service, deploymentName string) (string, error) {
	path := "/services/hostedservices/" + url.PathEscape(service) + "/deployments/" + url.PathEscape(deploymentName) + "?comp=media"
	return c.do(ctx, "DeleteDeployment", "DELETE", path, nil, nil)
}

func (c *ServiceManagementClient) GetDeployment(ctx context.Context, service string, slot types.DeploymentSlot) (*types.Deployment, error) {
	var out deploymentXML
	path := "/services/hostedservices/" + url.PathEscape(service) + "/deploymentslots/" + strings.ToLower(string(slot))
	if _, err := c.do(ctx, "GetDeployment", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.toDeployment(), nil
}

func (c *ServiceManagementClient) GetOperationStatus(ctx context.Context, requestID string) (*types.AsyncOperation, error) {
	var out operationXML
	if _, err := c.do(ctx, "GetOperationStatus", "GET", "/operations/"+url.PathEscape(requestID), nil, &out); err != nil {
		return nil, err
	}

	op := &types.AsyncOperation{
		RequestID:      requestID,
		Status:         types.OperationStatus(out.Status),
		HTTPStatusCode: out.HTTPStatusCode,
	}
	if out.Error != nil {
		op.ErrorCode = out.Error.Code
		op.ErrorMessage = out.Error.Message
	}
	return op, nil
}
