package types

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProject lays out the files a valid request points at
func writeProject(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DeployFolder), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DeployFolder, PackageFileName), []byte("pkg"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DeployFolder, ServiceConfigFileName), []byte("<ServiceConfiguration/>"), 0644))

	settings := filepath.Join(dir, "account.publishsettings")
	require.NoError(t, os.WriteFile(settings, []byte("<PublishData/>"), 0644))
	return dir, settings
}

func TestNewDeploymentRequest_Defaults(t *testing.T) {
	dir, settings := writeProject(t)

	req, err := NewDeploymentRequest(RequestOptions{
		ProjectDir:          dir,
		PublishSettingsPath: settings,
		CloudServiceName:    "  svc1 ",
		StorageAccountName:  "store1",
	})
	require.NoError(t, err)

	assert.Equal(t, "svc1", req.CloudServiceName())
	assert.Equal(t, SlotStaging, req.Slot())
	assert.True(t, req.Overwrite())
	assert.Equal(t, filepath.Join(dir, "deploy", "WindowsAzurePackage.cspkg"), req.PackagePath())
	assert.Equal(t, filepath.Join(dir, "deploy", "ServiceConfiguration.cscfg"), req.ServiceConfigPath())
	assert.Equal(t, filepath.Join(dir, "cert", "SampleRemoteAccessPrivate.pfx"), req.SamplePfxPath())
}

func TestNewDeploymentRequest_Rejects(t *testing.T) {
	dir, settings := writeProject(t)

	base := RequestOptions{
		ProjectDir:          dir,
		PublishSettingsPath: settings,
		CloudServiceName:    "svc1",
		StorageAccountName:  "store1",
	}

	tests := []struct {
		name  string
		edit  func(o *RequestOptions)
		field string
	}{
		{"blank cloud service", func(o *RequestOptions) { o.CloudServiceName = "   " }, "cloudServiceName"},
		{"blank storage account", func(o *RequestOptions) { o.StorageAccountName = "" }, "storageAccountName"},
		{"blank publish settings", func(o *RequestOptions) { o.PublishSettingsPath = "" }, "publishSettingsPath"},
		{"missing publish settings", func(o *RequestOptions) { o.PublishSettingsPath = filepath.Join(dir, "nope") }, "publishSettingsPath"},
		{"missing project dir", func(o *RequestOptions) { o.ProjectDir = filepath.Join(dir, "nope") }, "projectDir"},
		{"bad slot", func(o *RequestOptions) { o.DeploymentSlot = "qa" }, "deploymentSlot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.edit(&opts)

			_, err := NewDeploymentRequest(opts)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNewDeploymentRequest_MissingPackage(t *testing.T) {
	dir, settings := writeProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, DeployFolder, PackageFileName)))

	_, err := NewDeploymentRequest(RequestOptions{
		ProjectDir:          dir,
		PublishSettingsPath: settings,
		CloudServiceName:    "svc1",
		StorageAccountName:  "store1",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "packagePath", verr.Field)
}

func TestNewDeploymentRequest_SlotAndOverwrite(t *testing.T) {
	dir, settings := writeProject(t)

	req, err := NewDeploymentRequest(RequestOptions{
		ProjectDir:          dir,
		PublishSettingsPath: settings,
		CloudServiceName:    "svc1",
		StorageAccountName:  "store1",
		DeploymentSlot:      "production",
		Overwrite:           "false",
	})
	require.NoError(t, err)
	assert.Equal(t, SlotProduction, req.Slot())
	assert.False(t, req.Overwrite())
}

func TestInstanceStatusSettled(t *testing.T) {
	settled := []InstanceStatus{InstanceReadyRole, InstanceCyclingRole, InstanceFailedStartingVM, InstanceUnresponsiveRole}
	for _, s := range settled {
		assert.True(t, s.Settled(), s)
	}

	pending := []InstanceStatus{InstanceBusy, InstanceInitializing, InstanceStartingRole, InstanceUnknown}
	for _, s := range pending {
		assert.False(t, s.Settled(), s)
	}
}

func TestCloudServiceDeploymentFor(t *testing.T) {
	svc := CloudService{
		Name: "svc1",
		Deployments: []Deployment{
			{Name: "svc1-prod", Slot: "production"},
			{Name: "svc1-staging-old", Slot: SlotStaging},
		},
	}

	d, ok := svc.DeploymentFor(SlotStaging)
	require.True(t, ok)
	assert.Equal(t, "svc1-staging-old", d.Name)

	d, ok = svc.DeploymentFor(SlotProduction)
	require.True(t, ok)
	assert.Equal(t, "svc1-prod", d.Name)
}

func TestPhaseErrorUnwrap(t *testing.T) {
	err := &PhaseError{Phase: "uploading", Err: &ConnectivityError{Err: errors.New("dial tcp")}}

	var cerr *ConnectivityError
	assert.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "uploading")
}
