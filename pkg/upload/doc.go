// Package upload stages a package in blob storage for the duration of one
// deployment.
//
// The package goes to container "antdeploy" under the name
// "<cloudService>_<slot>.cspkg". The deployment request only needs the blob
// URL; once it has been accepted the blob is deleted with Staged.Cleanup.
package upload
