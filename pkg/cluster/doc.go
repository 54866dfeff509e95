// Package cluster partitions a fixed embedding space with Lloyd's k-means.
//
// A run seeds k centroids from k distinct nodes, then alternates an
// assignment step (every node joins its nearest centroid, ties going to the
// lowest centroid index) and an update step (every centroid becomes the mean
// of its members) until no centroid moves or the iteration cap is reached.
//
// Convergence is strict by default: the summed Euclidean movement of all
// centroids must be exactly zero. WithTolerance relaxes it. Groups that lose
// all members keep their previous centroid unless FailOnEmpty is selected.
//
// The iteration chain is sequential. Inside one iteration the assignment is
// split across nodes and the update across groups when more than one worker
// is configured; results do not depend on the worker count.
package cluster
