// Package epg manages guide sources: their channel catalogs and the XMLTV
// guide assembled from them for the exported playlist.
package epg

import "encoding/xml"

// XMLTV document types, the subset the guide pipeline reads and writes.

type XMLTV struct {
	XMLName       xml.Name    `xml:"tv"`
	GeneratorName string      `xml:"generator-info-name,attr,omitempty"`
	Channels      []Channel   `xml:"channel"`
	Programmes    []Programme `xml:"programme"`
}

type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
	Icon        *Icon    `xml:"icon,omitempty"`
}

type Icon struct {
	Src string `xml:"src,attr"`
}

type Programme struct {
	Start      string       `xml:"start,attr"`
	Stop       string       `xml:"stop,attr,omitempty"`
	Channel    string       `xml:"channel,attr"`
	Title      []Title      `xml:"title"`
	SubTitle   []Title      `xml:"sub-title,omitempty"`
	Desc       []Title      `xml:"desc,omitempty"`
	Category   []Title      `xml:"category,omitempty"`
	EpisodeNum []EpisodeNum `xml:"episode-num,omitempty"`
}

type Title struct {
	Lang string `xml:"lang,attr,omitempty"`
	Text string `xml:",chardata"`
}

type EpisodeNum struct {
	System string `xml:"system,attr,omitempty"`
	Text   string `xml:",chardata"`
}

// Site catalog types: the channel list a guide provider publishes, one file
// or endpoint per site.

type siteChannelList struct {
	XMLName  xml.Name      `xml:"channels"`
	Channels []siteChannel `xml:"channel"`
}

type siteChannel struct {
	Site    string `xml:"site,attr"`
	Lang    string `xml:"lang,attr"`
	XmltvID string `xml:"xmltv_id,attr"`
	SiteID  string `xml:"site_id,attr"`
	Name    string `xml:",chardata"`
}
