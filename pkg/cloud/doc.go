/*
Package cloud is the client side of the classic (Service Management) cloud API
and of blob storage.

# Interfaces

Orchestration code depends only on the interfaces in this package:

	Management           locations, cloud services, storage accounts,
	                     operations; embeds CertificateManager and
	                     DeploymentManager
	CertificateManager   list and upload service certificates
	DeploymentManager    create, get and delete deployments
	BlobStore            container and blob operations for package staging

# Service Management Client

ServiceManagementClient sends XML over HTTPS to
<BaseURL>/<subscriptionId>/..., authenticating with the management
certificate from the publish settings file as TLS client certificate. Every
request carries x-ms-version: 2014-06-01.

Transport is go-retryablehttp. Connection failures, 429 and 5xx responses are
retried with backoff; other 4xx responses are returned on the first attempt.
In particular a 409 is never retried here, because slot conflicts are handled
one level up by the conflict resolver.

Responses are mapped as follows:

	transport failure      types.ConnectivityError
	401, 403               types.AuthenticationError wrapping *ServiceError
	other non-2xx          *ServiceError (404 matches types.ErrNotFound)

Asynchronous calls return the x-ms-request-id header, which is polled with
GetOperationStatus.

# Blob Store

AzureBlobStore wraps the azblob SDK with a shared key credential built from the
storage account's primary key.

# Storage Account Listing

ListStorageAccounts lists account names, then fetches each account's details
with at most ListingConcurrency calls in flight. Each call is bounded by its own
timeout (60s by default). The first failure cancels the remaining calls and the
listing fails as a whole.
*/
package cloud
