package gp

import (
	"fmt"

	"github.com/gregLibert/ese-session/pkg/iso7816"
	"github.com/gregLibert/ese-session/pkg/tlv"
)

// TagCardData is the GET DATA tag of the card recognition data. Its value
// wraps a 73 template laid out like the security domain management data.
const TagCardData = 0x0066

// GetCardData reads the card recognition data with GET DATA 0066 and returns
// the value of tag 66.
func GetCardData(client *iso7816.Client) ([]byte, error) {
	data, _, err := run(client, "GET DATA card data", getData(TagCardData))
	if err != nil {
		return nil, err
	}
	v, err := tlv.GetValue(data, TagCardData)
	if err != nil {
		return nil, fmt.Errorf("card data: %w", err)
	}
	return v, nil
}

// ParseCardRecognitionData decodes the value returned by GetCardData.
func ParseCardRecognitionData(value []byte) (*ManagementData, error) {
	var wrapper struct {
		Data *ManagementData `tlv:"73"`
	}
	if err := tlv.Unmarshal(value, &wrapper); err != nil {
		return nil, fmt.Errorf("card data: %w", err)
	}
	if wrapper.Data == nil {
		return nil, fmt.Errorf("card data: template 73 not found")
	}
	return wrapper.Data, nil
}
