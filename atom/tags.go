// Package atom builds and parses the two metadata representations written into
// a movie header: QuickTime udta text atoms and the Apple mdta
// meta/hdlr/keys/ilst structure.
package atom

// Well-known QuickTime text atom tags.
const (
	TagLocation    = "©xyz"
	TagArtist      = "©ART"
	TagTitle       = "©nam"
	TagSoftware    = "©too"
	TagComment     = "©cmt"
	TagDate        = "©day"
	TagDescription = "©des"
	TagMake        = "©mak"
	TagModel       = "©mod"
)

// Apple mdta key names.
const (
	KeyMake             = "com.apple.quicktime.make"
	KeyModel            = "com.apple.quicktime.model"
	KeySoftware         = "com.apple.quicktime.software"
	KeyCreationDate     = "com.apple.quicktime.creationdate"
	KeyLocation         = "com.apple.quicktime.location.ISO6709"
	KeyAuthor           = "com.apple.quicktime.author"
	KeyComment          = "com.apple.quicktime.comment"
	KeyDescription      = "com.apple.quicktime.description"
	KeyTitle            = "com.apple.quicktime.title"
	KeyCameraIdentifier = "com.apple.quicktime.camera.identifier"
	KeyLensModel        = "com.apple.quicktime.camera.lens.model"
)

type keyMapping struct {
	tag, key string
}

// appleKeys is the tag to mdta key table, in the order entries are emitted.
var appleKeys = []keyMapping{
	{TagMake, KeyMake},
	{TagModel, KeyModel},
	{TagSoftware, KeySoftware},
	{TagDate, KeyCreationDate},
	{TagLocation, KeyLocation},
	{TagArtist, KeyAuthor},
	{TagComment, KeyComment},
	{TagDescription, KeyDescription},
	{TagTitle, KeyTitle},
}

// AppleKey returns the mdta key that mirrors a text atom tag.
func AppleKey(tag string) (string, bool) {
	for _, m := range appleKeys {
		if m.tag == tag {
			return m.key, true
		}
	}
	return "", false
}
