// See manager.go for the package-level doc comment.
package queue
