/*
Package security handles the certificates cspublish works with.

Two kinds of PKCS#12 (PFX) data pass through the tool:

	management certificate   embedded base64 in the publish settings file,
	                         no password, used as the TLS client certificate
	                         for every management API call
	service certificate      a .pfx in the project (the sample remote access
	                         certificate), uploaded to the cloud service

LoadPKCS12 turns either into a tls.Certificate with Leaf populated.
Thumbprint computes the SHA-1 fingerprint in the upper-case hex form that
service configuration files use, and ThumbprintsEqual compares two thumbprints
the way the management API does, ignoring case.

CertExpiresSoon flags a management certificate with less than 30 days left so
the CLI can warn before the API starts rejecting calls.
*/
package security
