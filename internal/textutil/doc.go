// Package textutil provides identifier and label helpers: safe metadata IDs,
// filesystem tokens, and human-readable titles for regions and products.
package textutil
