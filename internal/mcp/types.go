package mcp

// --- Tool Arguments ---

type EdgeArg struct {
	From string `json:"from" jsonschema:"Source node key"`
	To   string `json:"to" jsonschema:"Target node key"`
}

type ClusterGraphArgs struct {
	Edges         []EdgeArg `json:"edges" jsonschema:"Directed edges of the graph"`
	K             int       `json:"k" jsonschema:"Number of clusters, between 1 and the number of nodes"`
	Seed          *int64    `json:"seed,omitempty" jsonschema:"Random seed for reproducible embeddings and centroids"`
	MaxIterations int       `json:"max_iterations,omitempty" jsonschema:"Iteration cap (default 1000)"`
	Dimensions    int       `json:"dimensions,omitempty" jsonschema:"Embedding dimensions (default 64)"`
	WalkLength    int       `json:"walk_length,omitempty" jsonschema:"Random walk length (default 100)"`
	NumWalks      int       `json:"num_walks,omitempty" jsonschema:"Walks started from every node (default 80)"`
	Epochs        int       `json:"epochs,omitempty" jsonschema:"Skip-gram training epochs (default 5)"`
}

type ClusterGraphResult struct {
	Clusters      [][]string `json:"clusters"`
	Iterations    int        `json:"iterations"`
	State         string     `json:"state"`
	Movement      float64    `json:"movement"`
	EmptyClusters int        `json:"empty_clusters"`
}

type EmbedGraphArgs struct {
	Edges      []EdgeArg `json:"edges" jsonschema:"Directed edges of the graph"`
	Seed       *int64    `json:"seed,omitempty" jsonschema:"Random seed for reproducible embeddings"`
	Dimensions int       `json:"dimensions,omitempty" jsonschema:"Embedding dimensions (default 64)"`
	WalkLength int       `json:"walk_length,omitempty" jsonschema:"Random walk length (default 100)"`
	NumWalks   int       `json:"num_walks,omitempty" jsonschema:"Walks started from every node (default 80)"`
	Epochs     int       `json:"epochs,omitempty" jsonschema:"Skip-gram training epochs (default 5)"`
	Output     string    `json:"output,omitempty" jsonschema:"Optional path of an embedding file to write"`
	Neighbors  int       `json:"neighbors,omitempty" jsonschema:"Nearest neighbours to list per node (default 0)"`
}

type NodeNeighbors struct {
	Node      string   `json:"node"`
	Neighbors []string `json:"neighbors"`
}

type EmbedGraphResult struct {
	Nodes      int             `json:"nodes"`
	Edges      int             `json:"edges"`
	Dimensions int             `json:"dimensions"`
	SavedTo    string          `json:"saved_to,omitempty"`
	Nearest    []NodeNeighbors `json:"nearest,omitempty"`
}
