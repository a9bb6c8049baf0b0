/*
Package registry holds the two registries the cloner consults: the
session-scoped clone Dictionary (memoization and cycle breaking) and the
process-scoped relationship Policy (type-level always-included
relationships).
*/
package registry
