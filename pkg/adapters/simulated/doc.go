// Package simulated provides an in-process desktop: an Actuator that records
// every call and tracks a virtual pointer, and an ImageMatcher backed by a
// template table. It drives dry runs and tests.
package simulated
