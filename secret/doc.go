// Package secret resolves secret references found in configuration values.
//
// Values are first expanded against the environment (see ExpandEnvStrict).
// Any "secretref:<provider>:<ref>" token in the expanded value is then
// replaced by what the named Provider returns for ref:
//
//	QC_REDIS_PASSWORD=secretref:file:redis/password
//	QC_ADMIN_JWT_SECRET=secretref:env:ADMIN_SIGNING_KEY
//
// Two providers ship with the package: EnvProvider ("env") and
// FileProvider ("file"), the latter suited to mounted secret volumes.
package secret
