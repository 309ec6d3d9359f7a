package study

// DOIMetadata is what a bibliographic lookup returns for a DOI.
type DOIMetadata struct {
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// DiagramSpec is the structure a model returns for a diagram. It is rendered
// to an image by the server.
type DiagramSpec struct {
	Title string        `json:"title"`
	Nodes []DiagramNode `json:"nodes"`
	Edges []DiagramEdge `json:"edges"`
}

type DiagramNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type DiagramEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}
