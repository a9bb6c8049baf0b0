/*
Package spec normalizes raw traversal specifications into the canonical
form the cloner traverses.

Callers describe which relationships to follow with whatever shape is
convenient: a bare name, a list mixing names and maps, or a nested map.
Exceptions follow the same pattern, with maps keyed by relationship name
carrying field resets one level deeper per recursion. Normalize folds all
of these into a single Spec so the traversal algorithm never branches on
shape.
*/
package spec
