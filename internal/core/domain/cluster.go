package domain

// NoiseCluster is the reserved cluster id for points not confidently
// assigned to any cluster.
const NoiseCluster = -1

// Cluster is a group of segments judged topically related.
// Cluster ids are stable only within a single run and are never persisted.
type Cluster struct {
	// ID is the cluster identifier assigned by the cluster engine.
	ID int

	// Members holds the indices of the member segments, in segment order.
	Members []int

	// Centroid is the mean of the member embeddings in the original
	// (unreduced) embedding space. Used as labeling context.
	Centroid []float32

	// Coherence is the intra-cluster cohesion score in [0,1].
	Coherence float64
}

// Size returns the number of member segments.
func (c Cluster) Size() int {
	return len(c.Members)
}

// Clustering is the complete output of the cluster engine for one run.
type Clustering struct {
	// Assignment maps each segment index to a cluster id, NoiseCluster
	// included. Every segment index appears exactly once.
	Assignment []int

	// Clusters holds the non-noise clusters, sorted by size descending.
	Clusters []Cluster
}

// NoiseCount returns the number of segments assigned to noise.
func (cl Clustering) NoiseCount() int {
	n := 0
	for _, id := range cl.Assignment {
		if id == NoiseCluster {
			n++
		}
	}
	return n
}
