// See merge.go for the package-level doc comment.
package merge
