/*
Package project reads the files of a Cloud Services project and the publish
settings file that grants access to a subscription.

	package.xml                  LoadPackageDescriptor
	ServiceConfiguration.cscfg   LoadServiceConfiguration
	*.publishsettings            LoadPublishSettings

All three are read-only inputs. package.xml decides whether the project was
packaged for the emulator (local) or the cloud, and names the web application
appended to the site URL. The service configuration lists roles and the
certificates each role expects; its raw bytes are also the configuration
payload of a new deployment.

Publish settings come in two schemas. In 1.0 the management URL and
certificate sit on the PublishProfile element, in 2.0 on each Subscription.
Both are accepted. Problems with the publish settings are reported as
types.AuthenticationError.
*/
package project
