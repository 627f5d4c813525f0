package soap

import (
	"encoding/xml"

	"github.com/Clark-Hu/movie-oscars/internal/catalog"
	"github.com/Clark-Hu/movie-oscars/internal/domain"
)

type honorByLengthRequest struct {
	MinLength   float64 `xml:"minLength"`
	OscarsToAdd int64   `xml:"oscarsToAdd"`
}

type honorWithFewOscarsRequest struct {
	MaxOscars   int64 `xml:"maxOscars"`
	OscarsToAdd int64 `xml:"oscarsToAdd"`
}

type oscarsByMovieRequest struct {
	MovieID int64 `xml:"movieId"`
	Page    int   `xml:"page"`
	Size    int   `xml:"size"`
}

type addOscarsRequest struct {
	MovieID     int64 `xml:"movieId"`
	OscarsToAdd int64 `xml:"oscarsToAdd"`
}

type deleteOscarsRequest struct {
	MovieID int64 `xml:"movieId"`
}

type losersResponse struct {
	XMLName xml.Name     `xml:"urn:movies:oscars getOscarLosersResponse"`
	Persons []personNode `xml:"person"`
}

type updateResponse struct {
	XMLName      xml.Name
	UpdateResult updateResultNode `xml:"updateResult"`
}

type awardsResponse struct {
	XMLName xml.Name    `xml:"urn:movies:oscars getOscarsByMovieResponse"`
	Awards  []awardNode `xml:"award"`
}

type deleteResponse struct {
	XMLName xml.Name `xml:"urn:movies:oscars deleteOscarsByMovieResponse"`
	Deleted bool     `xml:"deleted"`
}

type updateResultNode struct {
	UpdatedCount  int         `xml:"updatedCount"`
	UpdatedMovies []movieNode `xml:"updatedMovies>movie"`
}

type awardNode struct {
	AwardID  int    `xml:"awardId"`
	Date     string `xml:"date"`
	Category string `xml:"category"`
}

type movieNode struct {
	ID              int64            `xml:"id"`
	Name            string           `xml:"name"`
	Coordinates     *coordinatesNode `xml:"coordinates,omitempty"`
	CreationDate    *string          `xml:"creationDate,omitempty"`
	OscarsCount     *int64           `xml:"oscarsCount,omitempty"`
	GoldenPalmCount *int64           `xml:"goldenPalmCount,omitempty"`
	Budget          *string          `xml:"budget,omitempty"`
	Genre           *string          `xml:"genre,omitempty"`
	Screenwriter    *personNode      `xml:"screenwriter,omitempty"`
}

type coordinatesNode struct {
	X *int64   `xml:"x,omitempty"`
	Y *float64 `xml:"y,omitempty"`
}

type personNode struct {
	Name       string   `xml:"name"`
	Birthday   *string  `xml:"birthday,omitempty"`
	Height     *float64 `xml:"height,omitempty"`
	Weight     *int64   `xml:"weight,omitempty"`
	PassportID string   `xml:"passportID"`
}

func toPersonNode(p domain.Person) personNode {
	dto := catalog.ToPersonDTO(&p)
	return personNode{
		Name:       dto.Name,
		Birthday:   dto.Birthday,
		Height:     dto.Height,
		Weight:     dto.Weight,
		PassportID: dto.PassportID,
	}
}

func toMovieNode(m domain.Movie) movieNode {
	dto := catalog.ToMovieDTO(m)
	node := movieNode{
		ID:              dto.ID,
		Name:            dto.Name,
		CreationDate:    dto.CreationDate,
		OscarsCount:     dto.OscarsCount,
		GoldenPalmCount: dto.GoldenPalmCount,
		Genre:           dto.Genre,
	}
	if dto.Coordinates != nil {
		node.Coordinates = &coordinatesNode{X: dto.Coordinates.X, Y: dto.Coordinates.Y}
	}
	if dto.Budget != nil {
		budget := dto.Budget.String()
		node.Budget = &budget
	}
	if m.Screenwriter != nil {
		writer := toPersonNode(*m.Screenwriter)
		node.Screenwriter = &writer
	}
	return node
}

func toUpdateResponse(op string, s domain.UpdateSummary) updateResponse {
	movies := make([]movieNode, 0, len(s.UpdatedMovies))
	for _, m := range s.UpdatedMovies {
		movies = append(movies, toMovieNode(m))
	}
	return updateResponse{
		XMLName:      xml.Name{Space: Namespace, Local: op + "Response"},
		UpdateResult: updateResultNode{UpdatedCount: s.UpdatedCount, UpdatedMovies: movies},
	}
}
