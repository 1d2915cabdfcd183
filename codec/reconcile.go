package codec

import (
	"fmt"

	"github.com/dot5enko/pointcloud-retiler/schema"
)

// Reconcile accepts two headers only when records of one can be written with
// the other's quantization unchanged. No coercion is attempted.
func (n *Native) Reconcile(a, b schema.CloudHeader) error {

	if a.Format != b.Format {
		return fmt.Errorf("point format %s != %s", a.Format, b.Format)
	}
	if a.Scale != b.Scale {
		return fmt.Errorf("scale %+v != %+v", a.Scale, b.Scale)
	}
	if a.Offset != b.Offset {
		return fmt.Errorf("offset %+v != %+v", a.Offset, b.Offset)
	}
	if a.CRS != b.CRS {
		return fmt.Errorf("crs EPSG:%d != EPSG:%d", a.CRS, b.CRS)
	}

	return nil
}
