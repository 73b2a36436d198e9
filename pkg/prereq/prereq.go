package prereq

import (
	"context"
	"fmt"
	"os"

	"github.com/cuemby/cspublish/pkg/cloud"
	"github.com/cuemby/cspublish/pkg/log"
	"github.com/cuemby/cspublish/pkg/metrics"
	"github.com/cuemby/cspublish/pkg/poller"
	"github.com/cuemby/cspublish/pkg/project"
	"github.com/cuemby/cspublish/pkg/security"
	"github.com/cuemby/cspublish/pkg/types"
)

// The project template ships a self-signed remote access certificate for
// demos. Its thumbprint and password are public placeholders, not secrets.
const (
	SampleThumbprint = "875F1656A34D93B266E71BF19C116C39F16B6987"
	SamplePassword   = "Password1"
)

// OperationWaiter waits for an asynchronous operation to finish
type OperationWaiter interface {
	PollUntilTerminal(ctx context.Context, query poller.QueryFunc) (*types.AsyncOperation, error)
}

// OperationStatusGetter fetches operation status by request id
type OperationStatusGetter interface {
	GetOperationStatus(ctx context.Context, requestID string) (*types.AsyncOperation, error)
}

// SampleCertificate identifies the bundled certificate roles may reference
type SampleCertificate struct {
	Thumbprint string
	Password   string
}

// DefaultSample is the certificate shipped with the project template
var DefaultSample = SampleCertificate{Thumbprint: SampleThumbprint, Password: SamplePassword}

// Checker makes sure certificates referenced by the service configuration can
// be resolved by the cloud service before a deployment is created
type Checker struct {
	Certificates cloud.CertificateManager
	Operations   OperationStatusGetter
	Poller       OperationWaiter

	// Sample defaults to DefaultSample
	Sample SampleCertificate
}

func (c *Checker) sample() SampleCertificate {
	if c.Sample.Thumbprint == "" {
		return DefaultSample
	}
	return c.Sample
}

// referencesThumbprint reports whether any role references thumbprint
func referencesThumbprint(cfg *project.ServiceConfiguration, thumbprint string) bool {
	for _, role := range cfg.Roles {
		for _, cert := range role.Certificates {
			if security.ThumbprintsEqual(cert.Thumbprint, thumbprint) {
				return true
			}
		}
	}
	return false
}

// EnsureCertificatePrerequisite uploads the sample certificate from pfxPath
// when a role references it and the cloud service does not have it yet.
// The file must decode with the sample password and carry the sample
// thumbprint. It reports whether an upload happened. Any error must stop the
// deployment.
func (c *Checker) EnsureCertificatePrerequisite(ctx context.Context, service string, cfg *project.ServiceConfiguration, pfxPath string) (bool, error) {
	sample := c.sample()
	logger := log.WithCloudService(service).With().Str("component", "prereq").Logger()
	defer func() {
		logger.Info().Msg("Ensure custom certificates referenced by roles are uploaded to the cloud service")
	}()

	if !referencesThumbprint(cfg, sample.Thumbprint) {
		return false, nil
	}

	existing, err := c.Certificates.ListCertificates(ctx, service)
	if err != nil {
		return false, fmt.Errorf("failed to list certificates: %w", err)
	}
	for _, cert := range existing {
		if security.ThumbprintsEqual(cert.Thumbprint, sample.Thumbprint) {
			logger.Debug().Msg("Sample certificate already uploaded")
			return false, nil
		}
	}

	pfx, err := os.ReadFile(pfxPath)
	if err != nil {
		return false, fmt.Errorf("failed to read sample certificate: %w", err)
	}
	cert, err := security.LoadPKCS12(pfx, sample.Password)
	if err != nil {
		return false, fmt.Errorf("failed to decode sample certificate %s: %w", pfxPath, err)
	}
	if got := security.Thumbprint(cert.Leaf); !security.ThumbprintsEqual(got, sample.Thumbprint) {
		return false, &types.ValidationError{
			Field:  "samplePfxPath",
			Reason: fmt.Sprintf("%s has thumbprint %s, roles reference %s", pfxPath, got, sample.Thumbprint),
		}
	}

	logger.Info().Str("thumbprint", sample.Thumbprint).Msg("Uploading sample certificate")
	requestID, err := c.Certificates.UploadCertificate(ctx, service, pfx, sample.Password)
	if err != nil {
		return false, fmt.Errorf("failed to upload sample certificate: %w", err)
	}
	metrics.CertificateUploadsTotal.Inc()

	if requestID != "" && c.Operations != nil && c.Poller != nil {
		_, err := c.Poller.PollUntilTerminal(ctx, func(ctx context.Context) (*types.AsyncOperation, error) {
			return c.Operations.GetOperationStatus(ctx, requestID)
		})
		if err != nil {
			return true, fmt.Errorf("sample certificate upload did not complete: %w", err)
		}
	}
	return true, nil
}
