// Package secretstore provides hmacauth.SecretResolver implementations
// backed by an in-memory map, a YAML file, a Redis hash and a PostgreSQL
// table, plus a read-through TTL cache that can wrap any of them.
//
// Every resolver returns hmacauth.ErrUnknownAccessKey when the access key
// id is not registered. Other errors are backend failures.
package secretstore
