// Package main is the entry point for imgquota.
//
//	@title						imgquota - Usage Quota Service
//	@version					1.0
//	@description				Per-identity usage quotas for an image conversion service: period windows, plan limits and an append-only usage ledger.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	ServiceKeyAuth
//	@in							header
//	@name						X-Service-Key
//	@description				Shared service key, checked against a bcrypt hash from config
package main

func main() {
	Execute()
}
