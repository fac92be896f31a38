package service

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var UsernameRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 32),
}

var RoomIdRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile(`^[a-zA-Z0-9]{8}$`)),
}

var PeerIdRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 64),
	is.PrintableASCII,
}

var MessageRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 2000),
}

var VideoUrlRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 2048),
}
