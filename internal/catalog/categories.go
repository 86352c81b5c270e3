package catalog

// CategoryOption is one entry of the storefront's category selector.
type CategoryOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Categories is the fixed selector list. IDs are compared against the event's
// category title as-is; several of them do not match what the events API
// seeds, and that gap is left visible rather than papered over here.
var Categories = []CategoryOption{
	{ID: CategoryAll, Name: "Todos"},
	{ID: "Minha categoria", Name: "Música"},
	{ID: "cinema", Name: "Cinema"},
	{ID: "theater", Name: "Teatro"},
	{ID: "culture", Name: "Cultura"},
	{ID: "sports", Name: "Esportes"},
	{ID: "comedy", Name: "Comédia"},
}
