// See client.go and cluster.go for the package-level doc comment.
package solrclient
