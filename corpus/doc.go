// Package corpus describes the AMI meeting catalogue and where every
// artifact of a preparation run lives in the artifact store.
package corpus
