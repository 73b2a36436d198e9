/*
Package deploy publishes a packaged project to a classic cloud service slot.

A Deployer drives one run through a fixed sequence of phases. Each phase is
timed, recorded in the run history and announced on the event broker; the
first failure stops the run and is returned as a types.PhaseError naming the
phase.

# Phases

	validating
	    │  package.xml, ServiceConfiguration.cscfg, management ping
	    ▼
	ensuring-infrastructure
	    │  cloud service and storage account, created when missing
	    ▼
	checking-prerequisites
	    │  sample remote access certificate uploaded when referenced
	    ▼
	uploading
	    │  package staged as a block blob
	    ▼
	creating-deployment
	    │  one delete-and-retry when the slot is occupied
	    │  staged blob deleted afterwards, whatever the outcome
	    ▼
	awaiting-operation
	    │  async operation polled to a terminal status
	    ▼
	awaiting-role-health
	    │  first settled role instance decides
	    ▼
	succeeded ──► site URL

Undeploy runs deleting-deployment followed by awaiting-operation.

Nothing created before a failure is rolled back: a cloud service or storage
account made in ensuring-infrastructure stays in place for the next run.

# Usage

	deployer := deploy.NewDeployer(deploy.Config{
		Cloud:    client,
		Blobs:    func(a types.StorageAccount) (cloud.BlobStore, error) { return cloud.NewAzureBlobStore(a) },
		Events:   broker,
		Store:    store,
		Registry: reg,
		Progress: progress.NewTerminal(os.Stdout),
	})

	result, err := deployer.Run(ctx, req)
	if err != nil {
		var perr *types.PhaseError
		if errors.As(err, &perr) {
			fmt.Println("failed while", perr.Phase)
		}
		return err
	}
	fmt.Println(result.URL)
*/
package deploy
