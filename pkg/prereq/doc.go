/*
Package prereq checks the certificate prerequisite of a deployment.

New projects reference a bundled sample remote access certificate
(cert/SampleRemoteAccessPrivate.pfx, thumbprint SampleThumbprint, password
SamplePassword). A deployment referencing a certificate the cloud service does
not hold fails, so when any role of the service configuration references the
sample thumbprint and the cloud service has no certificate with that thumbprint,
the sample PFX is uploaded once and the upload operation is polled to
completion.

The sample credentials are placeholders published with the template. Projects
using their own certificates must upload them beforehand; the checker only logs
a reminder.
*/
package prereq
