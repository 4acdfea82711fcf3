// See coordinator.go for the package-level doc comment.
package coordinator
