// See buffer.go for the package-level doc comment.
package updatebuffer
