// Package fanfou knows how the album site is laid out.
//
// It provides the HTTP client that replays the user's session, a thin
// document query layer over goquery, the resolver that reads the album
// owner from the page chrome, and the extractor that turns thumbnail
// references into original-size photo URLs.
//
// Album pages live at {prefix}{id}/p.{n}. Thumbnails carry a size suffix
// after '@' (for example "a.jpg@200w_200h_1l.jpg"); dropping it yields the
// original image.
package fanfou
