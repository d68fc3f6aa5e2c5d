// Package types defines the DAO interface, the entity and query model, the
// connection descriptor and configuration, and the standard errors of the
// gdao data access layer.
//
// Queries are plain data: a Filter tree built from Condition leaves and Group
// nodes, an ordered list of Sort keys and an optional Paging window. The
// filter DSL accepted from JSON or other loosely typed sources is converted
// into this model once, by ParseFilter and ParseQuery.
package types
