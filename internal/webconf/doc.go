// Package webconf holds the web server's share of the application settings.
//
// Workers push setting changes as internal messages (correlation id -1). The
// Store applies them and rebuilds the /browse rewrite patterns:
//   - /browse/pics, /browse/smartplaylists, /browse/music, /browse/playlists
//     map onto their directories when the feature is enabled
//   - /browse itself maps onto <varlibdir>/empty, whose placeholder
//     subdirectories mirror the enabled mappings
package webconf
